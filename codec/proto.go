package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto encodes values as a binary google.protobuf.Struct. Values are
// bridged through their JSON form, so the top-level value must encode to a
// JSON object and numbers carry float64 precision.
type Proto struct{}

func (Proto) Name() string { return "proto" }

func (Proto) Extension() string { return "pb" }

func (Proto) Encode(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("proto codec requires an object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (Proto) Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return err
	}
	raw, err := protojson.Marshal(&st)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/datastore/entity"
	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/persist"
	"github.com/tailored-agentic-units/datastore/store"
)

func newTextLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestSlogObserver_DatastoreEvents(t *testing.T) {
	tests := []struct {
		name      string
		event     observability.Event
		minLevel  slog.Level
		wantLevel string
	}{
		{
			name:      "create at debug handler",
			event:     observability.Event{Type: store.EventCreate, Level: observability.LevelVerbose, Source: "store.Create"},
			minLevel:  slog.LevelDebug,
			wantLevel: "level=DEBUG",
		},
		{
			name:     "create hidden at info handler",
			event:    observability.Event{Type: store.EventCreate, Level: observability.LevelVerbose, Source: "store.Create"},
			minLevel: slog.LevelInfo,
		},
		{
			name:      "write at info handler",
			event:     observability.Event{Type: persist.EventWrite, Level: observability.LevelInfo, Source: "persist.Write"},
			minLevel:  slog.LevelInfo,
			wantLevel: "level=INFO",
		},
		{
			name:      "foreign snapshot skip",
			event:     observability.Event{Type: store.EventSkip, Level: observability.LevelWarning, Source: "history.Undo"},
			minLevel:  slog.LevelWarn,
			wantLevel: "level=WARN",
		},
		{
			name:      "persistence failure",
			event:     observability.Event{Type: persist.EventError, Level: observability.LevelError, Source: "persist.Load"},
			minLevel:  slog.LevelWarn,
			wantLevel: "level=ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			observability.NewSlogObserver(newTextLogger(&buf, tt.minLevel)).OnEvent(context.Background(), tt.event)

			out := buf.String()
			if tt.wantLevel == "" {
				if out != "" {
					t.Errorf("expected no output, got: %s", out)
				}
				return
			}
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("expected %s, got: %s", tt.wantLevel, out)
			}
			if !strings.Contains(out, "msg="+string(tt.event.Type)) {
				t.Errorf("expected event type as message, got: %s", out)
			}
		})
	}
}

func TestSlogObserver_EventTypeAsMessage(t *testing.T) {
	var buf bytes.Buffer
	obs := observability.NewSlogObserver(newTextLogger(&buf, slog.LevelDebug))
	obs.OnEvent(context.Background(), observability.Event{
		Type:   store.EventSave,
		Level:  observability.LevelInfo,
		Source: "store.SaveChanges",
		Store:  "Contacts",
		Data: map[string]any{
			"entries": 42,
		},
	})

	output := buf.String()
	if !strings.Contains(output, "store.save") {
		t.Errorf("expected event type as log message, got: %s", output)
	}
	if !strings.Contains(output, "source=store.SaveChanges") {
		t.Errorf("expected source attribute, got: %s", output)
	}
	if !strings.Contains(output, "store=Contacts") {
		t.Errorf("expected store attribute, got: %s", output)
	}
	if !strings.Contains(output, "entries=42") {
		t.Errorf("expected data attributes, got: %s", output)
	}
}

func TestSlogObserver_OmitsEmptyStore(t *testing.T) {
	var buf bytes.Buffer
	observability.NewSlogObserver(newTextLogger(&buf, slog.LevelDebug)).OnEvent(context.Background(), observability.Event{
		Type:   persist.EventWrite,
		Level:  observability.LevelInfo,
		Source: "persist.Write",
	})

	if strings.Contains(buf.String(), "store=") {
		t.Errorf("expected no store attribute, got: %s", buf.String())
	}
}

func TestSlogObserver_NilLogger(t *testing.T) {
	obs := observability.NewSlogObserver(nil)
	obs.OnEvent(context.Background(), observability.Event{
		Type:  store.EventLoad,
		Level: observability.LevelVerbose,
	})
}

func TestMultiObserver_FansOutInOrder(t *testing.T) {
	var order []string
	record := func(name string) observability.Observer {
		return observability.ObserverFunc(func(_ context.Context, e observability.Event) {
			order = append(order, name+":"+string(e.Type))
		})
	}

	multi := observability.NewMultiObserver(nil, record("audit"), nil, record("metrics"))
	multi.OnEvent(context.Background(), observability.Event{Type: store.EventRestore})

	want := []string{"audit:store.restore", "metrics:store.restore"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("delivery = %v, want %v", order, want)
	}
}

func TestObserverFunc(t *testing.T) {
	var got observability.EventType
	obs := observability.ObserverFunc(func(_ context.Context, e observability.Event) {
		got = e.Type
	})

	obs.OnEvent(context.Background(), observability.Event{Type: store.EventDelete})
	if got != store.EventDelete {
		t.Errorf("ObserverFunc received %q, want %q", got, store.EventDelete)
	}

	var nilFunc observability.ObserverFunc
	nilFunc.OnEvent(context.Background(), observability.Event{Type: store.EventDelete})
}

func TestEmit_StampsTimestamp(t *testing.T) {
	var events []observability.Event
	obs := &captureObserver{events: &events}

	observability.Emit(context.Background(), obs, observability.Event{Type: store.EventSnapshot})

	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if events[0].Timestamp.IsZero() {
		t.Error("Emit should stamp a zero timestamp")
	}
}

func TestEmit_NilObserver(t *testing.T) {
	observability.Emit(context.Background(), nil, observability.Event{Type: store.EventSnapshot})
}

func TestRegistry_StoreConfigNames(t *testing.T) {
	var events []observability.Event
	observability.RegisterObserver("datastore-capture", &captureObserver{events: &events})

	for _, name := range []string{"", "noop", "slog", "datastore-capture"} {
		if obs, err := observability.GetObserver(name); err != nil || obs == nil {
			t.Errorf("GetObserver(%q) = %v, %v", name, obs, err)
		}
	}
	if _, err := observability.GetObserver("nonexistent"); err == nil {
		t.Error("GetObserver(nonexistent) should fail")
	}

	s, err := store.New[*entityStub](&store.Config{
		Persist:  persist.Config{Directory: t.TempDir(), Name: "stubs"},
		Observer: "datastore-capture",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	if _, err := s.Count(); err != nil {
		t.Fatalf("Count() error = %v", err)
	}

	if len(events) == 0 || events[len(events)-1].Type != store.EventLoad {
		t.Errorf("events = %v, want the store load routed to the registered observer", events)
	}
}

type entityStub struct {
	entity.Base
}

type captureObserver struct {
	events *[]observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	*c.events = append(*c.events, event)
}

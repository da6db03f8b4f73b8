package store

import (
	"reflect"
	"time"
	"unsafe"
)

var timeType = reflect.TypeFor[time.Time]()

// deepCopy returns a copy of v that shares no mutable memory with it.
// Unexported fields are copied too. Pointer cycles and shared pointers are
// preserved: two fields pointing at one value point at one copy. Channels,
// functions, and unsafe pointers are shared, not copied.
func deepCopy[T any](v T) T {
	var out T
	c := cloner{seen: make(map[visit]reflect.Value)}
	c.copyInto(reflect.ValueOf(&out).Elem(), reflect.ValueOf(&v).Elem())
	return out
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type cloner struct {
	seen map[visit]reflect.Value
}

// copyInto writes a deep copy of src into dst, which must be settable and
// of the same type.
func (c *cloner) copyInto(dst, src reflect.Value) {
	switch src.Kind() {
	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		key := visit{ptr: src.Pointer(), typ: src.Type()}
		if copied, ok := c.seen[key]; ok {
			dst.Set(copied)
			return
		}
		ptr := reflect.New(src.Type().Elem())
		c.seen[key] = ptr
		c.copyInto(ptr.Elem(), src.Elem())
		dst.Set(ptr)

	case reflect.Interface:
		if src.IsNil() {
			return
		}
		inner := addressable(src.Elem())
		copied := reflect.New(inner.Type()).Elem()
		c.copyInto(copied, inner)
		dst.Set(copied)

	case reflect.Struct:
		dst.Set(src)
		if src.Type() == timeType {
			return
		}
		for i := range src.NumField() {
			field := dst.Field(i)
			if !needsCopy(field.Type()) {
				continue
			}
			c.copyInto(settable(field), settable(src.Field(i)))
		}

	case reflect.Slice:
		if src.IsNil() {
			return
		}
		copied := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		if needsCopy(src.Type().Elem()) {
			for i := range src.Len() {
				c.copyInto(copied.Index(i), src.Index(i))
			}
		} else {
			reflect.Copy(copied, src)
		}
		dst.Set(copied)

	case reflect.Array:
		dst.Set(src)
		if !needsCopy(src.Type().Elem()) {
			return
		}
		for i := range src.Len() {
			c.copyInto(dst.Index(i), src.Index(i))
		}

	case reflect.Map:
		if src.IsNil() {
			return
		}
		copied := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			key := reflect.New(src.Type().Key()).Elem()
			c.copyInto(key, addressable(iter.Key()))
			val := reflect.New(src.Type().Elem()).Elem()
			c.copyInto(val, addressable(iter.Value()))
			copied.SetMapIndex(key, val)
		}
		dst.Set(copied)

	default:
		dst.Set(src)
	}
}

// needsCopy reports whether values of t can reference memory that a plain
// assignment would share.
func needsCopy(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	case reflect.Array:
		return needsCopy(t.Elem())
	case reflect.Struct:
		if t == timeType {
			return false
		}
		for i := range t.NumField() {
			if needsCopy(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// settable returns an assignable view of the addressable value v, reaching
// through the read-only flag reflect puts on unexported fields.
func settable(v reflect.Value) reflect.Value {
	if v.CanSet() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// addressable returns v itself when it is addressable, otherwise an
// addressable copy. Map entries and interface contents are not addressable,
// and their unexported fields can only be reached through an address.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	copied := reflect.New(v.Type()).Elem()
	copied.Set(v)
	return copied
}

// Package wire converts ledger DTOs to and from google.protobuf.Struct, the
// message type carried by the gRPC service and by protobuf HTTP bodies.
// The JSON field names of the DTOs are the wire field names.
//
// Struct numbers are doubles, so integers beyond 2^53 travel as decimal
// strings.  Integer fields decode from either form.
package wire

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxExactInt is the largest magnitude a double holds without rounding.
const maxExactInt = 1 << 53

// ToStruct encodes v, which must marshal to a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("wire: decode %T: %w", v, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("wire: %T is not an object", v)
	}
	return toStruct(obj)
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m))}
	for k, v := range m {
		pv, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("wire: field %q: %w", k, err)
		}
		s.Fields[k] = pv
	}
	return s, nil
}

func toValue(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case json.Number:
		return numberValue(x)
	case map[string]any:
		s, err := toStruct(x)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	case []any:
		l := &structpb.ListValue{Values: make([]*structpb.Value, len(x))}
		for i, e := range x {
			pv, err := toValue(e)
			if err != nil {
				return nil, err
			}
			l.Values[i] = pv
		}
		return structpb.NewListValue(l), nil
	}
	return structpb.NewValue(v)
}

func numberValue(n json.Number) (*structpb.Value, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		if i > maxExactInt || i < -maxExactInt {
			return structpb.NewStringValue(string(n)), nil
		}
		return structpb.NewNumberValue(float64(i)), nil
	}
	if _, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return structpb.NewStringValue(string(n)), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return structpb.NewNumberValue(f), nil
}

// FromStruct decodes s into v.  Fields v does not declare are rejected.
func FromStruct(s *structpb.Struct, v any) error {
	raw := normalize(s.AsMap(), reflect.TypeOf(v))
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("wire: marshal struct: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("wire: decode: %w", err)
	}
	return nil
}

var textUnmarshaler = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// normalize rewrites v, taken from a Struct, so that the integer fields of
// t decode exactly: decimal strings and integral doubles both become
// json.Number.  Values that match no integer field are left alone.
func normalize(v any, t reflect.Type) any {
	if t == nil {
		return v
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(textUnmarshaler) {
		return v
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch x := v.(type) {
		case string:
			return json.Number(x)
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return json.Number(strconv.FormatFloat(x, 'f', -1, 64))
			}
		}
	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		fields := jsonFields(t)
		for k, fv := range m {
			if ft, ok := fields[k]; ok {
				m[k] = normalize(fv, ft)
			}
		}
	case reflect.Map:
		if m, ok := v.(map[string]any); ok {
			for k, fv := range m {
				m[k] = normalize(fv, t.Elem())
			}
		}
	case reflect.Slice, reflect.Array:
		if l, ok := v.([]any); ok {
			for i := range l {
				l[i] = normalize(l[i], t.Elem())
			}
		}
	}
	return v
}

// jsonFields maps the JSON names of t's fields to their types, promoting
// the fields of untagged embedded structs.
func jsonFields(t reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				for k, v := range jsonFields(ft) {
					if _, ok := out[k]; !ok {
						out[k] = v
					}
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = f.Type
	}
	return out
}

// Marshal encodes v as a serialized google.protobuf.Struct.
func Marshal(v any) ([]byte, error) {
	s, err := ToStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// Unmarshal decodes a serialized google.protobuf.Struct into v.
func Unmarshal(data []byte, v any) error {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return FromStruct(s, v)
}

package agent

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Args are the JSON arguments of a tool call.
type Args struct {
	s *structpb.Struct
}

// NewArgs builds Args from a plain map.
func NewArgs(m map[string]any) (Args, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return Args{}, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return Args{s: s}, nil
}

// ParseArgs decodes a JSON object into Args.
func ParseArgs(data []byte) (Args, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return Args{}, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return Args{s: s}, nil
}

func (a Args) value(key string) (*structpb.Value, bool) {
	if a.s == nil {
		return nil, false
	}
	v, ok := a.s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present and not null.
func (a Args) Has(key string) bool {
	_, ok := a.value(key)
	return ok
}

// String returns key rendered as a string. Numbers and booleans are
// formatted; lists and objects are returned as JSON.
func (a Args) String(key string) (string, bool) {
	v, ok := a.value(key)
	if !ok {
		return "", false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, true
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64), true
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue), true
	default:
		b, err := protojson.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// StringOr returns key as a string, or def when absent or empty.
func (a Args) StringOr(key, def string) string {
	if s, ok := a.String(key); ok && s != "" {
		return s
	}
	return def
}

// Bool returns key as a boolean. Strings "true" and "false" are accepted
// in any case; ok is false for anything else.
func (a Args) Bool(key string) (value bool, ok bool) {
	v, present := a.value(key)
	if !present {
		return false, false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue, true
	case *structpb.Value_StringValue:
		switch strings.ToLower(strings.TrimSpace(k.StringValue)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Int returns key as an integer. Numeric strings are accepted.
func (a Args) Int(key string) (int, error) {
	v, ok := a.value(key)
	if !ok {
		return 0, fmt.Errorf("missing")
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(strings.TrimSpace(k.StringValue))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", k.StringValue)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number")
	}
}

// Strings returns a list argument with each element rendered as a string.
func (a Args) Strings(key string) ([]string, bool) {
	v, ok := a.value(key)
	if !ok {
		return nil, false
	}
	list := v.GetListValue()
	if list == nil {
		return nil, false
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		switch k := item.GetKind().(type) {
		case *structpb.Value_StringValue:
			out = append(out, k.StringValue)
		case *structpb.Value_NumberValue:
			out = append(out, strconv.FormatFloat(k.NumberValue, 'f', -1, 64))
		case *structpb.Value_BoolValue:
			out = append(out, strconv.FormatBool(k.BoolValue))
		default:
			b, _ := protojson.Marshal(item)
			out = append(out, string(b))
		}
	}
	return out, true
}

// Map returns the arguments as plain Go values.
func (a Args) Map() map[string]any {
	if a.s == nil {
		return map[string]any{}
	}
	return a.s.AsMap()
}

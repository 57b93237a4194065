package value

import (
	"encoding/json"
	"fmt"
)

// ToJSON converts v into a JSON-marshalable Go value. Functions have no
// JSON form and are rendered as tagged name objects so oracle payloads stay
// encodable.
func ToJSON(v Value) any {
	switch v.Kind {
	case KindNil:
		return nil
	case KindBool:
		return v.AsBool()
	case KindNum:
		return v.AsNum()
	case KindStr:
		return v.AsStr()
	case KindList:
		xs := v.AsList()
		out := make([]any, len(xs))
		for i := range xs {
			out[i] = ToJSON(xs[i])
		}
		return out
	case KindMap:
		m := v.AsMap()
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = ToJSON(e)
		}
		return out
	case KindFn:
		name := ""
		if f := v.AsFn(); f != nil {
			name = f.Name
		}
		return map[string]any{"$fn": name}
	case KindBuiltin:
		name := ""
		if b := v.AsBuiltin(); b != nil {
			name = b.Name
		}
		return map[string]any{"$builtin": name}
	default:
		return nil
	}
}

// MarshalJSON makes Value marshal as its ToJSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSON(v))
}

// FromJSON decodes arbitrary JSON into a Value. Objects become maps, arrays
// lists, numbers float64. Function values cannot arrive over the wire.
func FromJSON(raw []byte) (Value, error) {
	var x any
	if err := json.Unmarshal(raw, &x); err != nil {
		return Nil, fmt.Errorf("decode value: %w", err)
	}
	return FromGo(x)
}

// FromGo converts a json.Unmarshal result into a Value.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Nil, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Num(t), nil
	case string:
		return Str(t), nil
	case []any:
		xs := make([]Value, len(t))
		for i := range t {
			v, err := FromGo(t[i])
			if err != nil {
				return Nil, err
			}
			xs[i] = v
		}
		return List(xs), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromGo(e)
			if err != nil {
				return Nil, err
			}
			m[k] = v
		}
		return Map(m), nil
	default:
		return Nil, fmt.Errorf("unsupported value type %T", x)
	}
}

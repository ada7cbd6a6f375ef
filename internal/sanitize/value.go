// Package sanitize reduces arbitrary Go values to bounded, log-safe summaries.
//
// Values captured from call sites can be huge (request bodies, nested maps)
// or carry credentials. A Sanitizer turns each one into a Value: a tagged
// description with length caps, entry caps, depth caps and credential masks,
// suitable for structured log output.
package sanitize

import (
	"encoding/json"

	"go.uber.org/zap/zapcore"
)

// Kind classifies a sanitized value.
type Kind string

const (
	KindString   Kind = "string"
	KindArray    Kind = "array"
	KindObject   Kind = "object"
	KindResource Kind = "resource"
	KindNumber   Kind = "number"
	KindBool     Kind = "bool"
	KindNull     Kind = "null"
	KindOther    Kind = "other"
)

// Value is the sanitized form of one argument.
//
// Which fields are meaningful depends on Kind:
//   - string: Length (original byte length) and Text (masked, truncated)
//   - array: Count (original length), Items and, for maps, Keys
//   - object: Class and ObjectID (empty for non-pointer values)
//   - resource: ResourceType
//   - number: Number (int64, uint64 or float64)
//   - bool, null, other: Text holds the token ("true", "null", type name)
type Value struct {
	Kind Kind

	Length int
	Text   string

	Count int
	Items []Value
	Keys  []string
	// Summarized arrays were beyond the depth cap; only Count is known.
	Summarized bool

	Class    string
	ObjectID string

	ResourceType string

	Number interface{}
}

// Interface returns the value in its top-level log shape: plain maps,
// slices, strings and numbers.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindString:
		return map[string]interface{}{
			"type":   string(KindString),
			"length": v.Length,
			"value":  v.Text,
		}
	case KindArray:
		return map[string]interface{}{
			"type":     string(KindArray),
			"count":    v.Count,
			"contents": v.contents(),
		}
	case KindObject:
		return map[string]interface{}{
			"type":      string(KindObject),
			"class":     v.Class,
			"object_id": v.ObjectID,
		}
	case KindResource:
		return map[string]interface{}{
			"type":          string(KindResource),
			"resource_type": v.ResourceType,
		}
	case KindNumber:
		return v.Number
	default:
		return v.Text
	}
}

// compact returns the shape used for entries nested inside an array.
func (v Value) compact() interface{} {
	switch v.Kind {
	case KindArray:
		if v.Summarized {
			return arraySummary(v.Count)
		}
		return map[string]interface{}{
			"count":    v.Count,
			"contents": v.contents(),
		}
	case KindObject:
		return "object(" + v.Class + ")"
	case KindResource:
		return "resource(" + v.ResourceType + ")"
	case KindNumber:
		return v.Number
	default:
		return v.Text
	}
}

func (v Value) contents() interface{} {
	if v.Keys == nil {
		list := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			list[i] = item.compact()
		}
		return list
	}
	m := make(map[string]interface{}, len(v.Items))
	for i, item := range v.Items {
		m[v.Keys[i]] = item.compact()
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Values is a list of sanitized arguments that zap can encode as an array.
type Values []Value

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (vs Values) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range vs {
		if err := enc.AppendReflected(v.Interface()); err != nil {
			return err
		}
	}
	return nil
}

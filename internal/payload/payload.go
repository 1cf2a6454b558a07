// Package payload implements the polymorphic value carried through event
// transitions, plus the metadata tree accumulated along the way.
//
// A Data value is one of four variants: string, raw bytes, a structured
// JSON-compatible tree, or empty. Merge semantics between variants are the
// heart of transition chaining and are covered exhaustively by the tests.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// Kind discriminates the Data variants.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindBytes
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Type selects how raw input is decoded into a Data variant.
type Type uint8

const (
	TypeString Type = iota
	TypeBytes
	TypeJSON
)

// ParseType maps a config token to a Type. "text" is accepted as an alias
// for "string" (HTTP content options use it).
func ParseType(s string) (Type, error) {
	switch s {
	case "string", "text":
		return TypeString, nil
	case "bytes":
		return TypeBytes, nil
	case "json":
		return TypeJSON, nil
	default:
		return TypeString, fmt.Errorf("unknown data type %q", s)
	}
}

// Data is the carried value. The zero value is the empty variant.
type Data struct {
	kind Kind
	str  string
	raw  []byte
	tree any
}

// Empty returns the empty variant.
func Empty() Data { return Data{} }

// NewString returns the string variant.
func NewString(s string) Data { return Data{kind: KindString, str: s} }

// NewBytes returns the bytes variant. The slice is not copied.
func NewBytes(b []byte) Data { return Data{kind: KindBytes, raw: b} }

// NewStructured returns the structured variant holding a JSON-compatible
// tree (nil, bool, float64/int, string, []any, map[string]any).
func NewStructured(v any) Data { return Data{kind: KindStructured, tree: v} }

// FromReader reads r to completion and decodes per t.
func FromReader(r io.Reader, t Type) (Data, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Data{}, fmt.Errorf("read payload: %w", err)
	}
	switch t {
	case TypeString:
		return NewString(string(b)), nil
	case TypeBytes:
		return NewBytes(b), nil
	case TypeJSON:
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return Data{}, fmt.Errorf("parse payload json: %w", err)
		}
		return NewStructured(v), nil
	default:
		return Data{}, fmt.Errorf("unknown payload type %d", t)
	}
}

// Decode classifies raw bytes the permissive way: valid JSON becomes the
// structured variant, then valid UTF-8 becomes a string, anything else
// stays bytes.
func Decode(raw []byte) Data {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return NewStructured(v)
	}
	if utf8.Valid(raw) {
		return NewString(string(raw))
	}
	return NewBytes(raw)
}

// Kind reports the active variant.
func (d Data) Kind() Kind { return d.kind }

// IsEmpty reports whether d is the empty variant.
func (d Data) IsEmpty() bool { return d.kind == KindEmpty }

// StringValue returns the string variant's value.
func (d Data) StringValue() (string, bool) {
	return d.str, d.kind == KindString
}

// BytesValue returns the bytes variant's value.
func (d Data) BytesValue() ([]byte, bool) {
	return d.raw, d.kind == KindBytes
}

// StructuredValue returns the structured variant's tree.
func (d Data) StructuredValue() (any, bool) {
	return d.tree, d.kind == KindStructured
}

// AsBytes serializes d: strings as their UTF-8 bytes, bytes as-is,
// structured trees as JSON, empty as zero bytes.
func (d Data) AsBytes() ([]byte, error) {
	switch d.kind {
	case KindEmpty:
		return nil, nil
	case KindString:
		return []byte(d.str), nil
	case KindBytes:
		return d.raw, nil
	case KindStructured:
		b, err := json.Marshal(d.tree)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown payload kind %d", d.kind)
	}
}

// ToBytes is AsBytes with serialization failures collapsed to zero bytes.
func (d Data) ToBytes() []byte {
	b, err := d.AsBytes()
	if err != nil {
		return nil
	}
	return b
}

// TemplateValue exposes d to the template context: structured trees as-is,
// strings as strings, bytes as a UTF-8 string, empty as nil.
func (d Data) TemplateValue() any {
	switch d.kind {
	case KindString:
		return d.str
	case KindBytes:
		return string(d.raw)
	case KindStructured:
		return d.tree
	default:
		return nil
	}
}

// String renders d for debug printing.
func (d Data) String() string {
	switch d.kind {
	case KindEmpty:
		return ""
	case KindString:
		return d.str
	case KindBytes:
		if utf8.Valid(d.raw) {
			return string(d.raw)
		}
		return base64.StdEncoding.EncodeToString(d.raw)
	case KindStructured:
		b, err := json.Marshal(d.tree)
		if err != nil {
			return fmt.Sprintf("<unserializable: %v>", err)
		}
		return string(b)
	default:
		return ""
	}
}

// Clone returns a deep copy; mutations on the copy never reach d.
func (d Data) Clone() Data {
	out := Data{kind: d.kind, str: d.str}
	if d.raw != nil {
		out.raw = append([]byte(nil), d.raw...)
	}
	out.tree = copyTree(d.tree)
	return out
}

// Equal compares variants and values. Structured trees compare by
// canonical JSON so int/float encodings of the same number match.
func (d Data) Equal(other Data) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case KindEmpty:
		return true
	case KindString:
		return d.str == other.str
	case KindBytes:
		return string(d.raw) == string(other.raw)
	case KindStructured:
		a, errA := json.Marshal(d.tree)
		b, errB := json.Marshal(other.tree)
		return errA == nil && errB == nil && string(a) == string(b)
	default:
		return false
	}
}

func copyTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyTree(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyTree(e)
		}
		return out
	default:
		return v
	}
}

package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// dataEnvelope is the persistence encoding. Tagging the variant keeps
// string vs bytes vs structured distinct across a restart.
type dataEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes d as a tagged envelope.
func (d Data) MarshalJSON() ([]byte, error) {
	env := dataEnvelope{Type: d.kind.String()}
	var err error
	switch d.kind {
	case KindEmpty:
	case KindString:
		env.Value, err = json.Marshal(d.str)
	case KindBytes:
		env.Value, err = json.Marshal(d.raw)
	case KindStructured:
		env.Value, err = json.Marshal(d.tree)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal payload value: %w", err)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the tagged envelope written by MarshalJSON.
func (d *Data) UnmarshalJSON(b []byte) error {
	var env dataEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("unmarshal payload envelope: %w", err)
	}
	switch env.Type {
	case "empty", "":
		*d = Data{}
	case "string":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("unmarshal payload string: %w", err)
		}
		*d = NewString(s)
	case "bytes":
		var raw []byte
		if err := json.Unmarshal(env.Value, &raw); err != nil {
			return fmt.Errorf("unmarshal payload bytes: %w", err)
		}
		*d = NewBytes(raw)
	case "structured":
		var v any
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return fmt.Errorf("unmarshal payload tree: %w", err)
		}
		*d = NewStructured(v)
	default:
		return fmt.Errorf("unknown payload variant %q", env.Type)
	}
	return nil
}

// UnmarshalYAML decodes a config data field. A plain string scalar stays a
// string, a !!binary scalar becomes bytes, null becomes empty, and every
// other shape (mapping, sequence, number, bool) becomes a structured tree.
func (d *Data) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		switch value.Tag {
		case "!!null":
			*d = Data{}
			return nil
		case "!!str":
			*d = NewString(value.Value)
			return nil
		case "!!binary":
			raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value.Value))
			if err != nil {
				return fmt.Errorf("decode binary payload: %w", err)
			}
			*d = NewBytes(raw)
			return nil
		}
	}
	var v any
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	*d = NewStructured(v)
	return nil
}

// MarshalYAML renders the natural YAML value of each variant.
func (d Data) MarshalYAML() (any, error) {
	switch d.kind {
	case KindString:
		return d.str, nil
	case KindBytes:
		return d.raw, nil
	case KindStructured:
		return d.tree, nil
	default:
		return nil, nil
	}
}

// MarshalJSON encodes the policy by its config token.
func (p MergePolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the config token form.
func (p *MergePolicy) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseMergePolicy(strings.ToLower(s))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML accepts yes/no/overwrite and the YAML 1.1 boolean spellings.
func (p *MergePolicy) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseMergePolicy(strings.ToLower(value.Value))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

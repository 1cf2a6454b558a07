package event

import (
	"gopkg.in/yaml.v3"
)

// ExecuteSpec spawns a subprocess, feeds the payload to stdin and reads
// stdout back into the flow.
type ExecuteSpec struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args,omitempty"`
	ReplaceArgs map[int]string    `yaml:"replace_args" json:"replace_args,omitempty"`
	Vars        map[string]string `yaml:"vars" json:"vars,omitempty"`
	DataType    DataType          `yaml:"data_type" json:"data_type,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the command.
func (s *ExecuteSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Command = value.Value
		return nil
	}
	type alias ExecuteSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = ExecuteSpec(a)
	return nil
}

func (s *ExecuteSpec) applyDefaults() error {
	if s.DataType == "" {
		s.DataType = DataString
	}
	return s.DataType.validate()
}

func (s *ExecuteSpec) clone() *ExecuteSpec {
	c := *s
	if s.Args != nil {
		c.Args = append([]string(nil), s.Args...)
	}
	if s.ReplaceArgs != nil {
		c.ReplaceArgs = make(map[int]string, len(s.ReplaceArgs))
		for k, v := range s.ReplaceArgs {
			c.ReplaceArgs[k] = v
		}
	}
	if s.Vars != nil {
		c.Vars = make(map[string]string, len(s.Vars))
		for k, v := range s.Vars {
			c.Vars[k] = v
		}
	}
	return &c
}

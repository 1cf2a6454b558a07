package event

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PrintTarget selects the stream a print event writes to.
type PrintTarget string

const (
	PrintStdout PrintTarget = "stdout"
	PrintStderr PrintTarget = "stderr"
)

// PrintSpec writes the flowing payload's rendering to a standard stream.
type PrintSpec struct {
	Output PrintTarget `yaml:"output" json:"output,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand naming the stream.
func (s *PrintSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Output = PrintTarget(value.Value)
		return nil
	}
	type alias PrintSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = PrintSpec(a)
	return nil
}

func (s *PrintSpec) applyDefaults() error {
	if s.Output == "" {
		s.Output = PrintStdout
	}
	switch s.Output {
	case PrintStdout, PrintStderr:
		return nil
	default:
		return fmt.Errorf("print output %q not supported", s.Output)
	}
}

// ScanCodeSpec matches integer scan codes from an input device.
type ScanCodeSpec struct {
	Code int `yaml:"code" json:"code"`
}

// UnmarshalYAML accepts a bare integer, a hex string like "0x1e", or the
// {code} mapping form.
func (s *ScanCodeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		code, err := strconv.ParseInt(value.Value, 0, 32)
		if err != nil {
			return fmt.Errorf("scan code %q: %w", value.Value, err)
		}
		s.Code = int(code)
		return nil
	}
	type alias ScanCodeSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = ScanCodeSpec(a)
	return nil
}

// PassSpec is the no-op action used as a synthetic transition carrier.
type PassSpec struct{}

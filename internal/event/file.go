package event

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileReadSpec reads a file into the flow.
type FileReadSpec struct {
	File     string   `yaml:"file" json:"file"`
	DataType DataType `yaml:"data_type" json:"data_type,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the path.
func (s *FileReadSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.File = value.Value
		return nil
	}
	type alias FileReadSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = FileReadSpec(a)
	return nil
}

func (s *FileReadSpec) applyDefaults() error {
	if s.DataType == "" {
		s.DataType = DataString
	}
	return s.DataType.validate()
}

// WriteMode selects how file_write opens its target.
type WriteMode string

const (
	WriteTruncate WriteMode = "truncate"
	WriteAppend   WriteMode = "append"
)

// FileWriteSpec writes the flowing payload to a file.
type FileWriteSpec struct {
	File string    `yaml:"file" json:"file"`
	Mode WriteMode `yaml:"mode" json:"mode,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the path.
func (s *FileWriteSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.File = value.Value
		return nil
	}
	type alias FileWriteSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = FileWriteSpec(a)
	return nil
}

func (s *FileWriteSpec) applyDefaults() error {
	if s.Mode == "" {
		s.Mode = WriteTruncate
	}
	switch s.Mode {
	case WriteTruncate, WriteAppend:
		return nil
	default:
		return fmt.Errorf("file_write mode %q not supported", s.Mode)
	}
}

// WatchAction starts or stops watching a path.
type WatchAction string

const (
	WatchStart WatchAction = "start"
	WatchStop  WatchAction = "stop"
)

// WatchSpec drives the shared file-system watcher.
type WatchSpec struct {
	Path      string      `yaml:"path" json:"path"`
	Action    WatchAction `yaml:"action" json:"action,omitempty"`
	Recursive bool        `yaml:"recursive" json:"recursive,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the path.
func (s *WatchSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Path = value.Value
		return nil
	}
	type alias WatchSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = WatchSpec(a)
	return nil
}

func (s *WatchSpec) applyDefaults() error {
	if s.Action == "" {
		s.Action = WatchStart
	}
	switch s.Action {
	case WatchStart, WatchStop:
		return nil
	default:
		return fmt.Errorf("watch action %q not supported", s.Action)
	}
}

// WatchKind classifies a file-system notification.
type WatchKind string

const (
	WatchCreated WatchKind = "created"
	WatchWritten WatchKind = "written"
	WatchRemoved WatchKind = "removed"
)

// FileChangedSpec matches file-system notifications by path and kind.
type FileChangedSpec struct {
	Path string    `yaml:"path" json:"path"`
	When WatchKind `yaml:"when" json:"when,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the path.
func (s *FileChangedSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Path = value.Value
		return nil
	}
	type alias FileChangedSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = FileChangedSpec(a)
	return nil
}

func (s *FileChangedSpec) applyDefaults() error {
	if s.When == "" {
		s.When = WatchWritten
	}
	switch s.When {
	case WatchCreated, WatchWritten, WatchRemoved:
		return nil
	default:
		return fmt.Errorf("file_changed kind %q not supported", s.When)
	}
}

// Matches reports whether a notification for path with kind belongs here.
func (s *FileChangedSpec) Matches(path string, kind WatchKind) bool {
	return s.Path == path && s.When == kind
}

package event

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eventloom/eventloom/internal/timeparse"
)

// TimeSpec schedules an event at a parsed instant. Repeat events reuse it;
// the kind decides whether the schedule re-arms after firing.
type TimeSpec struct {
	Result  timeparse.Result `yaml:"-" json:"execute_time"`
	EventID string           `yaml:"-" json:"event_id,omitempty"`
}

// UnmarshalYAML parses either the scalar shorthand ("22:00") or the full
// {execute_time, event_id} form. Expressions are resolved against the
// load-time clock; a reset slides them forward on every fire.
func (s *TimeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r, err := timeparse.Parse(value.Value, time.Now())
		if err != nil {
			return err
		}
		s.Result = r
		return nil
	}
	var a struct {
		ExecuteTime string `yaml:"execute_time"`
		EventID     string `yaml:"event_id"`
	}
	if err := value.Decode(&a); err != nil {
		return err
	}
	if a.ExecuteTime == "" {
		return fmt.Errorf("time spec needs execute_time")
	}
	r, err := timeparse.Parse(a.ExecuteTime, time.Now())
	if err != nil {
		return err
	}
	s.Result = r
	s.EventID = a.EventID
	return nil
}

// Reset slides the schedule to its next occurrence relative to now.
func (s *TimeSpec) Reset(now time.Time) error {
	r, err := s.Result.Reset(now)
	if err != nil {
		return fmt.Errorf("reset schedule %q: %w", s.Result.Source(), err)
	}
	s.Result = r
	return nil
}

// PeriodSpec gates dispatch to a window between two parsed endpoints.
type PeriodSpec struct {
	From timeparse.Result `yaml:"-" json:"from"`
	To   timeparse.Result `yaml:"-" json:"to"`
}

// UnmarshalYAML parses the {from, to} endpoint expressions.
func (s *PeriodSpec) UnmarshalYAML(value *yaml.Node) error {
	var a struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}
	if err := value.Decode(&a); err != nil {
		return err
	}
	if a.From == "" || a.To == "" {
		return fmt.Errorf("period needs both from and to")
	}
	now := time.Now()
	from, err := timeparse.Parse(a.From, now)
	if err != nil {
		return fmt.Errorf("period from: %w", err)
	}
	to, err := timeparse.Parse(a.To, now)
	if err != nil {
		return fmt.Errorf("period to: %w", err)
	}
	s.From = from
	s.To = to
	return nil
}

// Matches reports whether now falls inside the period. Two time-of-day
// endpoints with from after to describe a window across midnight, which
// matches when now sits on either side of it.
func (s *PeriodSpec) Matches(now time.Time) bool {
	if s.From.ClockAfter(s.To) {
		return s.From.Lte(now) || s.To.Gt(now)
	}
	return s.From.Lte(now) && s.To.Gt(now)
}

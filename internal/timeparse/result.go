// Package timeparse provides layered time parsing for the schedule
// expressions carried by time, repeat and period events.
//
// The parsing is layered:
//  1. Strict clock (HH:MM[:SS]) -> time-of-day result
//  2. Strict date (YYYY-MM-DD) -> date result
//  3. Strict datetime (YYYY-MM-DD HH:MM[:SS], RFC 3339) -> full instant
//  4. Sunrise/sunset expressions (require a configured location)
//  5. Relative offsets (in 10s, 2 hours ago, now)
//  6. Natural language (tomorrow 12:00, next monday) via olebedev/when
//
// A Result keeps its source string so it can be re-parsed against a later
// reference time; that is how "tomorrow 12:00" slides forward after a fire.
package timeparse

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExecutionWindow is the tolerance around a target instant inside which a
// scheduled event counts as ready.
const ExecutionWindow = time.Second

// Cooldown suppresses re-fires of the same event id after a match.
const Cooldown = 3 * time.Second

// Shape distinguishes how much of an instant a Result pins down.
type Shape uint8

const (
	ShapeDateTime Shape = iota
	ShapeDate
	ShapeTime
)

func (s Shape) String() string {
	switch s {
	case ShapeDateTime:
		return "datetime"
	case ShapeDate:
		return "date"
	case ShapeTime:
		return "time"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// Result is a parsed schedule expression. The zero value is not valid;
// construct through Parse or the typed constructors.
type Result struct {
	shape  Shape
	at     time.Time     // datetime instant, or midnight for date results
	clock  time.Duration // offset from midnight for time-of-day results
	source string
}

// NewDateTime returns a full-instant result.
func NewDateTime(at time.Time, source string) Result {
	return Result{shape: ShapeDateTime, at: at, source: source}
}

// NewDate returns a date-only result pinned to midnight of at's day.
func NewDate(at time.Time, source string) Result {
	y, m, d := at.Date()
	return Result{shape: ShapeDate, at: time.Date(y, m, d, 0, 0, 0, 0, at.Location()), source: source}
}

// NewClock returns a time-of-day result.
func NewClock(clock time.Duration, source string) Result {
	return Result{shape: ShapeTime, clock: clock, source: source}
}

// Shape reports which representation the result pins down.
func (r Result) Shape() Shape { return r.shape }

// Source returns the original expression.
func (r Result) Source() string { return r.source }

// Instant returns the absolute instant for datetime and date results.
func (r Result) Instant() (time.Time, bool) {
	return r.at, r.shape != ShapeTime
}

// Clock returns the offset from midnight for time-of-day results.
func (r Result) Clock() (time.Duration, bool) {
	return r.clock, r.shape == ShapeTime
}

// At resolves the result to a concrete instant: full results return
// their own instant, time-of-day results attach to now's date.
func (r Result) At(now time.Time) time.Time {
	if r.shape == ShapeTime {
		return dateOf(now).Add(r.clock)
	}
	return r.at
}

// clockOf extracts now's offset from midnight.
func clockOf(now time.Time) time.Duration {
	return time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
}

// dateOf floors now to midnight.
func dateOf(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// cmp compares r against now at the coarsest common representation:
// time-of-day against now's clock, date against now's date, datetime
// against now. Returns -1, 0 or 1.
func (r Result) cmp(now time.Time) int {
	switch r.shape {
	case ShapeTime:
		nc := clockOf(now)
		switch {
		case r.clock < nc:
			return -1
		case r.clock > nc:
			return 1
		default:
			return 0
		}
	case ShapeDate:
		nd := dateOf(now)
		switch {
		case r.at.Before(nd):
			return -1
		case r.at.After(nd):
			return 1
		default:
			return 0
		}
	default:
		switch {
		case r.at.Before(now):
			return -1
		case r.at.After(now):
			return 1
		default:
			return 0
		}
	}
}

// Gte reports r >= now.
func (r Result) Gte(now time.Time) bool { return r.cmp(now) >= 0 }

// Gt reports r > now.
func (r Result) Gt(now time.Time) bool { return r.cmp(now) > 0 }

// Lte reports r <= now.
func (r Result) Lte(now time.Time) bool { return r.cmp(now) <= 0 }

// Lt reports r < now.
func (r Result) Lt(now time.Time) bool { return r.cmp(now) < 0 }

// ClockAfter reports whether r's clock lies after other's. Only meaningful
// when both are time-of-day results; the period wrap-around check uses it.
func (r Result) ClockAfter(other Result) bool {
	return r.shape == ShapeTime && other.shape == ShapeTime && r.clock > other.clock
}

// WithinExecutionPeriod reports whether now lies inside the execution
// window around the target instant.
func (r Result) WithinExecutionPeriod(now time.Time) bool {
	var d time.Duration
	switch r.shape {
	case ShapeTime:
		d = clockOf(now) - r.clock
	default:
		d = now.Sub(r.at)
	}
	if d < 0 {
		d = -d
	}
	return d < ExecutionWindow
}

// Expired reports whether the target instant lies more than one execution
// window in the past. Time-of-day results recur daily and never expire.
func (r Result) Expired(now time.Time) bool {
	if r.shape == ShapeTime {
		return false
	}
	return now.Sub(r.at) > ExecutionWindow
}

// Reset re-parses the source expression against now, sliding relative
// expressions forward to their next occurrence.
func (r Result) Reset(now time.Time) (Result, error) {
	return Parse(r.source, now)
}

// Equal compares shape, pinned instant and source.
func (r Result) Equal(other Result) bool {
	if r.shape != other.shape || r.source != other.source {
		return false
	}
	if r.shape == ShapeTime {
		return r.clock == other.clock
	}
	return r.at.Equal(other.at)
}

func (r Result) String() string {
	switch r.shape {
	case ShapeTime:
		base := time.Time{}.Add(r.clock)
		return fmt.Sprintf("time %s (%q)", base.Format("15:04:05"), r.source)
	case ShapeDate:
		return fmt.Sprintf("date %s (%q)", r.at.Format("2006-01-02"), r.source)
	default:
		return fmt.Sprintf("datetime %s (%q)", r.at.Format(time.RFC3339), r.source)
	}
}

type resultJSON struct {
	Shape  string    `json:"shape"`
	Source string    `json:"source"`
	At     time.Time `json:"at,omitempty"`
	Clock  string    `json:"clock,omitempty"`
}

// MarshalJSON keeps shape, instant and source so a persisted schedule
// survives a restart byte-for-byte.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Shape: r.shape.String(), Source: r.source}
	if r.shape == ShapeTime {
		out.Clock = time.Time{}.Add(r.clock).Format("15:04:05")
	} else {
		out.At = r.at
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a persisted result.
func (r *Result) UnmarshalJSON(b []byte) error {
	var in resultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("unmarshal time result: %w", err)
	}
	switch in.Shape {
	case "time":
		t, err := time.Parse("15:04:05", in.Clock)
		if err != nil {
			return fmt.Errorf("unmarshal time result clock: %w", err)
		}
		*r = NewClock(clockOf(t), in.Source)
	case "date":
		*r = NewDate(in.At, in.Source)
	case "datetime", "":
		*r = NewDateTime(in.At, in.Source)
	default:
		return fmt.Errorf("unknown time result shape %q", in.Shape)
	}
	return nil
}

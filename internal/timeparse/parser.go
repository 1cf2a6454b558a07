package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	// clockRe matches strict 24h clock expressions: 22:00, 06:59:37
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	// dateRe matches strict ISO dates: 2024-07-31
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	relUnits    = `(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w)`
	relFutureRe = regexp.MustCompile(`^in\s+(?:(an?)\s+|(\d+)\s*)` + relUnits + `$`)
	relPastRe   = regexp.MustCompile(`^(?:(an?)\s+|(\d+)\s*)` + relUnits + `\s+ago$`)
)

var (
	nlOnce   sync.Once
	nlParser *when.Parser
)

// naturalParser builds the shared when parser once. Rule sets are
// read-only after construction, so the instance is safe to share.
func naturalParser() *when.Parser {
	nlOnce.Do(func() {
		nlParser = when.New(nil)
		nlParser.Add(en.All...)
		nlParser.Add(common.All...)
	})
	return nlParser
}

// Parse resolves a schedule expression against now. The layers run in
// order; the first one that recognizes the input wins.
func Parse(source string, now time.Time) (Result, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return Result{}, fmt.Errorf("empty time expression")
	}

	if r, ok := parseClock(s, source); ok {
		return r, nil
	}
	if r, ok := parseDate(s, source, now.Location()); ok {
		return r, nil
	}
	if r, ok := parseDateTime(s, source, now.Location()); ok {
		return r, nil
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "sunrise") || strings.Contains(lower, "sunset") {
		return parseSun(s, lower, source, now)
	}
	if r, ok := parseRelative(lower, source, now); ok {
		return r, nil
	}

	res, err := naturalParser().Parse(s, now)
	if err != nil {
		return Result{}, fmt.Errorf("parse time expression %q: %w", source, err)
	}
	if res == nil {
		return Result{}, fmt.Errorf("unrecognized time expression %q", source)
	}
	return NewDateTime(res.Time, source), nil
}

// parseClock handles strict HH:MM[:SS].
func parseClock(s, source string) (Result, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return Result{}, false
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss := 0
	if m[3] != "" {
		ss, _ = strconv.Atoi(m[3])
	}
	if hh > 23 || mm > 59 || ss > 59 {
		return Result{}, false
	}
	clock := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
	return NewClock(clock, source), true
}

// parseDate handles strict YYYY-MM-DD.
func parseDate(s, source string, loc *time.Location) (Result, bool) {
	if !dateRe.MatchString(s) {
		return Result{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return Result{}, false
	}
	return NewDate(t, source), true
}

// dateTimeLayouts are the strict full-instant forms, tried in order.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseDateTime handles strict date+clock forms.
func parseDateTime(s, source string, loc *time.Location) (Result, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return NewDateTime(t, source), true
		}
	}
	return Result{}, false
}

// parseRelative handles "now", "in 10s" style deadlines and "a second ago"
// style past offsets deterministically.
func parseRelative(lower, source string, now time.Time) (Result, bool) {
	if lower == "now" {
		return NewDateTime(now, source), true
	}
	if m := relFutureRe.FindStringSubmatch(lower); m != nil {
		d, ok := relDuration(m[1], m[2], m[3])
		if !ok {
			return Result{}, false
		}
		return NewDateTime(now.Add(d), source), true
	}
	if m := relPastRe.FindStringSubmatch(lower); m != nil {
		d, ok := relDuration(m[1], m[2], m[3])
		if !ok {
			return Result{}, false
		}
		return NewDateTime(now.Add(-d), source), true
	}
	return Result{}, false
}

// relDuration converts (article | digits) + unit into a duration.
func relDuration(article, digits, unit string) (time.Duration, bool) {
	n := 1
	if article == "" {
		parsed, err := strconv.Atoi(digits)
		if err != nil {
			return 0, false
		}
		n = parsed
	}
	var u time.Duration
	switch unit[0] {
	case 's':
		u = time.Second
	case 'm':
		u = time.Minute
	case 'h':
		u = time.Hour
	case 'd':
		u = 24 * time.Hour
	case 'w':
		u = 7 * 24 * time.Hour
	default:
		return 0, false
	}
	return time.Duration(n) * u, true
}

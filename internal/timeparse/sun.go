package timeparse

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Location is the observer position for sun calculations.
type Location struct {
	Latitude  float64
	Longitude float64
}

var (
	locMu    sync.RWMutex
	location *Location
)

// SetLocation installs the observer position. Called once at startup when
// the configuration carries a location.
func SetLocation(l Location) {
	locMu.Lock()
	defer locMu.Unlock()
	location = &l
}

// CurrentLocation returns the configured observer position.
func CurrentLocation() (Location, bool) {
	locMu.RLock()
	defer locMu.RUnlock()
	if location == nil {
		return Location{}, false
	}
	return *location, true
}

// parseSun handles expressions containing sunrise or sunset.
//
// Two forms:
//   - keyword-first: "sunrise", "sunset in 30 minutes". The sun event is
//     computed for today; when it already passed it rolls forward one day.
//     The remainder is an offset phrase parsed relative to the sun instant
//     (empty means "now", i.e. the instant itself).
//   - date-first: "2024-07-31 sunrise". The rest of the expression names
//     the day; the sun event is computed for exactly that day.
func parseSun(s, lower, source string, now time.Time) (Result, error) {
	keyword := "sunrise"
	idx := strings.Index(lower, keyword)
	if idx < 0 {
		keyword = "sunset"
		idx = strings.Index(lower, keyword)
	}

	if idx == 0 {
		sunAt, err := sunInstant(keyword, now, now.Location())
		if err != nil {
			return Result{}, err
		}
		if sunAt.Before(now) {
			sunAt, err = sunInstant(keyword, now.AddDate(0, 0, 1), now.Location())
			if err != nil {
				return Result{}, err
			}
		}
		offset := strings.TrimSpace(s[len(keyword):])
		if offset == "" {
			offset = "now"
		}
		res, err := Parse(offset, sunAt)
		if err != nil {
			return Result{}, fmt.Errorf("parse %s offset: %w", keyword, err)
		}
		at, ok := res.Instant()
		if !ok {
			// A bare clock offset pins the time on the sun event's day.
			at = dateOf(sunAt).Add(res.clock)
		}
		return NewDateTime(at, source), nil
	}

	dayExpr := strings.TrimSpace(s[:idx] + s[idx+len(keyword):])
	dayRes, err := Parse(dayExpr, now)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s day %q: %w", keyword, dayExpr, err)
	}
	day, ok := dayRes.Instant()
	if !ok {
		return Result{}, fmt.Errorf("%s expression %q needs a date, got a time of day", keyword, source)
	}
	sunAt, err := sunInstant(keyword, day, now.Location())
	if err != nil {
		return Result{}, err
	}
	return NewDateTime(sunAt, source), nil
}

// sunInstant computes the sun event on day at the configured location,
// expressed in loc.
func sunInstant(keyword string, day time.Time, loc *time.Location) (time.Time, error) {
	l, ok := CurrentLocation()
	if !ok {
		return time.Time{}, fmt.Errorf("%s requires a configured location", keyword)
	}
	rise, set := sunrise.SunriseSunset(l.Latitude, l.Longitude, day.Year(), day.Month(), day.Day())
	at := rise
	if keyword == "sunset" {
		at = set
	}
	if at.IsZero() {
		return time.Time{}, fmt.Errorf("no %s at latitude %.4f on %s", keyword, l.Latitude, day.Format("2006-01-02"))
	}
	return at.In(loc), nil
}

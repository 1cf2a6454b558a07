package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockLayer(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     string
		wantClock time.Duration
	}{
		{"evening", "22:00", 22 * time.Hour},
		{"with seconds", "06:59:37", 6*time.Hour + 59*time.Minute + 37*time.Second},
		{"single digit hour", "7:05", 7*time.Hour + 5*time.Minute},
		{"midnight", "00:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, ShapeTime, got.Shape())
			clock, ok := got.Clock()
			require.True(t, ok)
			assert.Equal(t, tt.wantClock, clock)
			assert.Equal(t, tt.input, got.Source())
		})
	}
}

func TestParseDateLayer(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	got, err := Parse("2024-07-31", now)
	require.NoError(t, err)
	assert.Equal(t, ShapeDate, got.Shape())
	at, ok := got.Instant()
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)), "got %v", at)
}

func TestParseDateTimeLayer(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"minutes", "2024-07-31 06:30", time.Date(2024, 7, 31, 6, 30, 0, 0, time.UTC)},
		{"seconds", "2024-07-31 06:30:15", time.Date(2024, 7, 31, 6, 30, 15, 0, time.UTC)},
		{"t separator", "2024-07-31T06:30:15", time.Date(2024, 7, 31, 6, 30, 15, 0, time.UTC)},
		{"rfc3339", "2024-07-31T06:30:15Z", time.Date(2024, 7, 31, 6, 30, 15, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, ShapeDateTime, got.Shape())
			at, ok := got.Instant()
			require.True(t, ok)
			assert.True(t, at.Equal(tt.want), "got %v", at)
		})
	}
}

func TestParseRelativeLayer(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"now", "now", now},
		{"compact seconds", "in 10s", now.Add(10 * time.Second)},
		{"worded seconds", "in 10 seconds", now.Add(10 * time.Second)},
		{"hours", "in 2 hours", now.Add(2 * time.Hour)},
		{"article hour", "in an hour", now.Add(time.Hour)},
		{"days", "in 3 days", now.Add(72 * time.Hour)},
		{"second ago", "a second ago", now.Add(-time.Second)},
		{"minutes ago", "5 minutes ago", now.Add(-5 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, ShapeDateTime, got.Shape())
			at, _ := got.Instant()
			assert.True(t, at.Equal(tt.want), "got %v want %v", at, tt.want)
		})
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) // a Monday

	t.Run("tomorrow keeps the clock", func(t *testing.T) {
		got, err := Parse("tomorrow", now)
		require.NoError(t, err)
		assert.Equal(t, ShapeDateTime, got.Shape())
		at, _ := got.Instant()
		assert.Equal(t, 16, at.Day())
	})

	t.Run("tomorrow at noon", func(t *testing.T) {
		got, err := Parse("tomorrow 12:00", now)
		require.NoError(t, err)
		at, _ := got.Instant()
		assert.Equal(t, 16, at.Day())
		assert.Equal(t, 12, at.Hour())
		assert.Equal(t, 0, at.Minute())
	})

	t.Run("yesterday at noon", func(t *testing.T) {
		got, err := Parse("yesterday 12:00", now)
		require.NoError(t, err)
		at, _ := got.Instant()
		assert.Equal(t, 14, at.Day())
		assert.Equal(t, 12, at.Hour())
	})

	t.Run("next monday", func(t *testing.T) {
		got, err := Parse("next monday", now)
		require.NoError(t, err)
		at, _ := got.Instant()
		assert.Equal(t, time.Monday, at.Weekday())
		assert.True(t, at.After(now))
	})
}

func TestParseErrors(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"gibberish", "flurble"},
		{"out of range clock", "25:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, now)
			assert.Error(t, err)
		})
	}
}

func TestResetSlidesForward(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	r, err := Parse("in 10s", now)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	r2, err := r.Reset(later)
	require.NoError(t, err)

	at, _ := r2.Instant()
	assert.True(t, at.Equal(later.Add(10*time.Second)))
	assert.Equal(t, "in 10s", r2.Source())
}

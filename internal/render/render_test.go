package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderContextPaths(t *testing.T) {
	ctx := map[string]any{
		"data": map[string]any{"level": float64(3), "room": "hall"},
		"metadata": map[string]any{
			"url": "/hooks/door",
		},
		"state": map[string]any{"count": "4"},
	}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"data path", "level {{data.level}}", "level 3"},
		{"metadata path", "from {{metadata.url}}", "from /hooks/door"},
		{"state path", "seen {{state.count}} times", "seen 4 times"},
		{"missing path is empty", "[{{data.absent}}]", "[]"},
		{"composed name", "handle_{{data.room}}", "handle_hall"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tpl, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderScalarData(t *testing.T) {
	got, err := Render("payload: {{data}}", map[string]any{"data": "on"})
	require.NoError(t, err)
	assert.Equal(t, "payload: on", got)
}

func TestRenderEqHelper(t *testing.T) {
	ctx := map[string]any{"data": "open"}

	got, err := Render(`{{#eq data "open"}}yes{{else}}no{{/eq}}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "yes", got)

	got, err = Render(`{{#eq data "closed"}}yes{{else}}no{{/eq}}`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "no", got)
}

func TestRenderDateTimeFormat(t *testing.T) {
	orig := nowFunc
	defer func() { nowFunc = orig }()
	nowFunc = func() time.Time {
		return time.Date(2024, 7, 31, 6, 30, 15, 0, time.UTC)
	}

	got, err := Render(`{{date-time-format "now" "%Y-%m-%d %H:%M:%S"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-31 06:30:15", got)

	got, err = Render(`{{date-time-format "22:15" "%H.%M"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "22.15", got)

	got, err = Render(`{{date-time-format data "%Y"}}`, map[string]any{"data": "2030-01-05"})
	require.NoError(t, err)
	assert.Equal(t, "2030", got)

	got, err = Render(`{{date-time-format "not a time at all ???" "%Y"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "not a time at all ???", got, "unparseable expressions render verbatim")
}

func TestRenderName(t *testing.T) {
	name, err := RenderName("  handle_{{data}} ", map[string]any{"data": "door"})
	require.NoError(t, err)
	assert.Equal(t, "handle_door", name)

	_, err = RenderName("{{data.absent}}", map[string]any{"data": map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}

func TestRenderBadTemplate(t *testing.T) {
	_, err := Render("{{#if}}", nil)
	require.Error(t, err)
}

func TestStrftimeLayout(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"%Y-%m-%d", "2006-01-02"},
		{"%H:%M:%S", "15:04:05"},
		{"%A %B %e", "Monday January _2"},
		{"100%%", "100%"},
		{"%Q", "%Q"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := strftimeLayout(tt.format); got != tt.want {
			t.Errorf("strftimeLayout(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

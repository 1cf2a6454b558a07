package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passEvent(name string) *Event {
	return &Event{Name: name, Kind: KindPass, Pass: &PassSpec{}}
}

func TestCatalogKeepsFirstOnDuplicateName(t *testing.T) {
	c := NewCatalog()
	first := passEvent("dup")
	second := &Event{Name: "dup", Kind: KindPrint, Print: &PrintSpec{Output: PrintStdout}}

	assert.True(t, c.Add(first))
	assert.False(t, c.Add(second))
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("dup")
	require.True(t, ok)
	assert.Equal(t, KindPass, got.Kind)
}

func TestCatalogPreservesInsertionOrder(t *testing.T) {
	c := NewCatalog()
	names := []string{"third", "first", "second"}
	for _, n := range names {
		c.Add(passEvent(n))
	}
	var got []string
	for _, ev := range c.All() {
		got = append(got, ev.Name)
	}
	assert.Equal(t, names, got)
}

func TestResolveNextLiteral(t *testing.T) {
	c := NewCatalog()
	c.Add(passEvent("target"))
	ev := passEvent("start")
	ev.NextEvent = "target"

	next, ok := c.ResolveNext(ev)
	require.True(t, ok)
	assert.Equal(t, "target", next.Name)

	ev.NextEvent = "missing"
	_, ok = c.ResolveNext(ev)
	assert.False(t, ok)
}

func TestResolveNextTemplateBuildsPassThrough(t *testing.T) {
	c := NewCatalog()
	ev := passEvent("router")
	ev.NextTemplate = "handle_{{data.kind}}"

	next, ok := c.ResolveNext(ev)
	require.True(t, ok)
	assert.Equal(t, "generated_from_router", next.Name)
	assert.Equal(t, KindPass, next.Kind)
	assert.Equal(t, "handle_{{data.kind}}", next.NextTemplate)
	assert.False(t, c.Has(next.Name), "generated events stay out of the catalog")
}

func TestResolveNextWithoutTransition(t *testing.T) {
	c := NewCatalog()
	_, ok := c.ResolveNext(passEvent("terminal"))
	assert.False(t, ok)
}

func TestMergeWithPrefixRewritesLiteralNexts(t *testing.T) {
	c := NewCatalog()
	a := passEvent("open")
	a.NextEvent = "announce"
	b := passEvent("announce")
	b.NextTemplate = "route_{{data}}"

	c.MergeWithPrefix([]*Event{a, b}, "garage")

	got, ok := c.Get("garage_open")
	require.True(t, ok)
	assert.Equal(t, "garage_announce", got.NextEvent)

	tpl, ok := c.Get("garage_announce")
	require.True(t, ok)
	assert.Equal(t, "route_{{data}}", tpl.NextTemplate, "templates resolve at render time and keep their text")
}

func TestEventIDOf(t *testing.T) {
	c := NewCatalog()
	c.Add(mustDecode(t, "name: nightly\ntime: {execute_time: \"22:00\", event_id: shutdown}"))

	id, ok := c.EventIDOf("nightly")
	require.True(t, ok)
	assert.Equal(t, "shutdown", id)

	_, ok = c.EventIDOf("absent")
	assert.False(t, ok)
}

func TestParseEntriesKeepsDocumentOrder(t *testing.T) {
	events, err := ParseEntries([]byte(`
zulu:
  print: stdout
alpha:
  pass: {}
mike:
  mqtt_subscribe: home/door
`))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "zulu", events[0].Name)
	assert.Equal(t, "alpha", events[1].Name)
	assert.Equal(t, "mike", events[2].Name)
}

func TestParseEntriesExplicitNameWins(t *testing.T) {
	events, err := ParseEntries([]byte(`
key_name:
  name: real_name
  pass: {}
`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "real_name", events[0].Name)
}

func TestParseEntriesErrors(t *testing.T) {
	_, err := ParseEntries([]byte("- just\n- a\n- list"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")

	_, err = ParseEntries([]byte("broken:\n  data: x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `event "broken"`)

	events, err := ParseEntries(nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/timeparse"
)

func mustDecode(t *testing.T, src string) *Event {
	t.Helper()
	var ev Event
	require.NoError(t, yaml.Unmarshal([]byte(src), &ev))
	return &ev
}

func TestDecodeDerivesKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Kind
	}{
		{"subscribe", "mqtt_subscribe: home/door", KindMqttSubscribe},
		{"publish", "mqtt_publish: home/light", KindMqttPublish},
		{"unsubscribe", "mqtt_unsubscribe: home/door", KindMqttUnsubscribe},
		{"time", "time: \"22:00\"", KindTime},
		{"repeat", "repeat: \"22:00\"", KindRepeat},
		{"period", "period: {from: \"08:00\", to: \"17:00\"}", KindPeriod},
		{"api call", "api_call: http://localhost/state", KindApiCall},
		{"api listen", "api_listen: /hooks/door", KindApiListen},
		{"file read", "file_read: /tmp/in.txt", KindFileRead},
		{"file write", "file_write: /tmp/out.txt", KindFileWrite},
		{"watch", "watch: /tmp", KindWatch},
		{"file changed", "file_changed: /tmp/in.txt", KindFileChanged},
		{"execute", "execute: uptime", KindExecute},
		{"print", "print: stderr", KindPrint},
		{"scan code", "scan_code_read: 30", KindScanCodeRead},
		{"pass", "pass: {}", KindPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := mustDecode(t, tt.src)
			assert.Equal(t, tt.want, ev.Kind)
		})
	}
}

func TestDecodeFullEntry(t *testing.T) {
	ev := mustDecode(t, `
name: door_open
mqtt_subscribe:
  topic: home/garage/door
  body: open
next_event: announce
data: door is open
metadata:
  room: garage
state:
  count: times_opened
merge_data: overwrite
`)
	assert.Equal(t, "door_open", ev.Name)
	assert.Equal(t, KindMqttSubscribe, ev.Kind)
	require.NotNil(t, ev.MqttSubscribe)
	assert.Equal(t, "home/garage/door", ev.MqttSubscribe.Topic)
	require.NotNil(t, ev.MqttSubscribe.Body)
	assert.Equal(t, "open", ev.MqttSubscribe.Body.Body)
	assert.Equal(t, "announce", ev.NextEvent)
	payloadStr, payloadOK := ev.Payload.StringValue()
	require.True(t, payloadOK)
	assert.Equal(t, "door is open", payloadStr)
	assert.Equal(t, "garage", ev.Metadata["room"])
	require.NotNil(t, ev.State)
	assert.Equal(t, "times_opened", ev.State.Count)
	assert.Equal(t, payload.MergeOverwrite, ev.MergePolicy)
}

func TestDecodeRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"no kind", "name: empty\ndata: x", "no event kind"},
		{"two kinds", "print: stdout\npass: {}", "multiple event kinds"},
		{"both nexts", "pass: {}\nnext_event: a\nnext_event_template: \"{{data}}\"", "mutually exclusive"},
		{"bad method", "api_call: {url: http://x, method: patch}", "method"},
		{"bad print target", "print: console", "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev Event
			err := yaml.Unmarshal([]byte(tt.src), &ev)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	call := mustDecode(t, "api_call: http://localhost:8080/state")
	assert.Equal(t, "GET", call.ApiCall.Method)
	assert.Equal(t, DataJSON, call.ApiCall.RequestContent)
	assert.Equal(t, DataJSON, call.ApiCall.ResponseContent)

	listen := mustDecode(t, "api_listen: /hooks/door")
	assert.Equal(t, "POST", listen.ApiListen.Method)
	assert.Equal(t, ListenStart, listen.ApiListen.Action)

	wr := mustDecode(t, "file_write: /tmp/out.txt")
	assert.Equal(t, WriteTruncate, wr.FileWrite.Mode)

	watch := mustDecode(t, "watch: /tmp")
	assert.Equal(t, WatchStart, watch.Watch.Action)

	changed := mustDecode(t, "file_changed: /tmp/in.txt")
	assert.Equal(t, WatchWritten, changed.FileChanged.When)

	exec := mustDecode(t, "execute: uptime")
	assert.Equal(t, DataString, exec.Execute.DataType)

	pr := mustDecode(t, "print: {}")
	assert.Equal(t, PrintStdout, pr.Print.Output)
}

func TestEventIDPrefersExplicitID(t *testing.T) {
	ev := mustDecode(t, `
name: nightly
time:
  execute_time: "22:00"
  event_id: lights_off
`)
	assert.Equal(t, "lights_off", ev.EventID())

	plain := mustDecode(t, "name: nightly\ntime: \"22:00\"")
	assert.Equal(t, "nightly", plain.EventID())

	pass := &Event{Name: "p", Kind: KindPass, Pass: &PassSpec{}}
	assert.Equal(t, "p", pass.EventID())
}

func TestEqualByNameOnly(t *testing.T) {
	a := &Event{Name: "x", Kind: KindPass, Pass: &PassSpec{}}
	b := &Event{Name: "x", Kind: KindPrint, Print: &PrintSpec{Output: PrintStdout}}
	c := &Event{Name: "y", Kind: KindPass, Pass: &PassSpec{}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestCloneIsolatesMutations(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	r, err := timeparse.Parse("in 10s", now)
	require.NoError(t, err)

	orig := &Event{
		Name:     "job",
		Kind:     KindRepeat,
		Repeat:   &TimeSpec{Result: r},
		Payload:  payload.NewStructured(map[string]any{"n": float64(1)}),
		Metadata: payload.Metadata{"src": "test"},
		State:    &State{Count: "runs", Replace: map[string]string{"a": "1"}},
		Execute:  nil,
	}

	c := orig.Clone()
	c.Metadata["src"] = "changed"
	c.State.Replace["a"] = "2"
	require.NoError(t, c.Repeat.Reset(now.Add(time.Hour)))

	assert.Equal(t, "test", orig.Metadata["src"])
	assert.Equal(t, "1", orig.State.Replace["a"])
	assert.True(t, orig.Repeat.Result.Equal(r), "reset on the clone must not move the original schedule")
}

func TestCloneCopiesExecuteSpec(t *testing.T) {
	orig := mustDecode(t, `
execute:
  command: sh
  args: ["-c", "echo hi"]
  replace_args:
    1: "echo {{data}}"
  vars:
    MODE: test
`)
	c := orig.Clone()
	c.Execute.Args[0] = "-x"
	c.Execute.ReplaceArgs[1] = "other"
	c.Execute.Vars["MODE"] = "prod"

	assert.Equal(t, "-c", orig.Execute.Args[0])
	assert.Equal(t, "echo {{data}}", orig.Execute.ReplaceArgs[1])
	assert.Equal(t, "test", orig.Execute.Vars["MODE"])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := mustDecode(t, `
name: pulse
repeat:
  execute_time: "06:30"
  event_id: morning
data:
  level: 3
metadata:
  zone: hall
next_event: lights_on
`)
	b, err := ev.Encode()
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, KindRepeat, got.Kind)
	assert.Equal(t, "pulse", got.Name)
	assert.Equal(t, "morning", got.EventID())
	assert.Equal(t, "lights_on", got.NextEvent)
	assert.Equal(t, "06:30", got.Repeat.Result.Source())
	assert.True(t, got.Payload.Equal(ev.Payload))
	assert.Equal(t, "hall", got.Metadata["zone"])
}

func TestDecodeRejectsCorruptRecord(t *testing.T) {
	_, err := Decode([]byte(`{"name":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event kind")

	_, err = Decode([]byte("not json"))
	require.Error(t, err)
}

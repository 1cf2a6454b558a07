// Package event defines the typed event model and the catalog of named
// events that drives dispatch.
//
// An Event pairs exactly one kind-specific trigger or action contract with
// an optional outgoing transition, a payload and accumulated metadata.
// Identity is the name alone; the catalog preserves insertion order because
// source executors match first-wins.
package event

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/eventloom/eventloom/internal/payload"
)

// Kind names an event's trigger or action contract.
type Kind string

const (
	KindMqttPublish     Kind = "mqtt_publish"
	KindMqttSubscribe   Kind = "mqtt_subscribe"
	KindMqttUnsubscribe Kind = "mqtt_unsubscribe"
	KindTime            Kind = "time"
	KindRepeat          Kind = "repeat"
	KindPeriod          Kind = "period"
	KindApiCall         Kind = "api_call"
	KindApiListen       Kind = "api_listen"
	KindFileRead        Kind = "file_read"
	KindFileWrite       Kind = "file_write"
	KindWatch           Kind = "watch"
	KindFileChanged     Kind = "file_changed"
	KindExecute         Kind = "execute"
	KindPrint           Kind = "print"
	KindScanCodeRead    Kind = "scan_code_read"
	KindPass            Kind = "pass"
)

// State configures per-event dispatcher state: an optional counter key
// incremented on every fire, plus static overrides injected into the
// template context.
type State struct {
	Count   string            `yaml:"count" json:"count,omitempty"`
	Replace map[string]string `yaml:"replace" json:"replace,omitempty"`
}

// Event is the central record. Exactly one kind field is populated; Kind
// caches which one. Equality and identity use only Name.
type Event struct {
	Name         string              `yaml:"name" json:"name"`
	NextEvent    string              `yaml:"next_event" json:"next_event,omitempty"`
	NextTemplate string              `yaml:"next_event_template" json:"next_event_template,omitempty"`
	Payload      payload.Data        `yaml:"data" json:"data"`
	Metadata     payload.Metadata    `yaml:"metadata" json:"metadata,omitempty"`
	State        *State              `yaml:"state" json:"state,omitempty"`
	MergePolicy  payload.MergePolicy `yaml:"merge_data" json:"merge_data,omitempty"`

	Kind Kind `yaml:"-" json:"-"`

	MqttPublish     *MqttPublishSpec     `yaml:"mqtt_publish" json:"mqtt_publish,omitempty"`
	MqttSubscribe   *MqttSubscribeSpec   `yaml:"mqtt_subscribe" json:"mqtt_subscribe,omitempty"`
	MqttUnsubscribe *MqttUnsubscribeSpec `yaml:"mqtt_unsubscribe" json:"mqtt_unsubscribe,omitempty"`
	Time            *TimeSpec            `yaml:"time" json:"time,omitempty"`
	Repeat          *TimeSpec            `yaml:"repeat" json:"repeat,omitempty"`
	Period          *PeriodSpec          `yaml:"period" json:"period,omitempty"`
	ApiCall         *ApiCallSpec         `yaml:"api_call" json:"api_call,omitempty"`
	ApiListen       *ApiListenSpec       `yaml:"api_listen" json:"api_listen,omitempty"`
	FileRead        *FileReadSpec        `yaml:"file_read" json:"file_read,omitempty"`
	FileWrite       *FileWriteSpec       `yaml:"file_write" json:"file_write,omitempty"`
	Watch           *WatchSpec           `yaml:"watch" json:"watch,omitempty"`
	FileChanged     *FileChangedSpec     `yaml:"file_changed" json:"file_changed,omitempty"`
	Execute         *ExecuteSpec         `yaml:"execute" json:"execute,omitempty"`
	Print           *PrintSpec           `yaml:"print" json:"print,omitempty"`
	ScanCode        *ScanCodeSpec        `yaml:"scan_code_read" json:"scan_code_read,omitempty"`
	Pass            *PassSpec            `yaml:"pass" json:"pass,omitempty"`
}

// normalize derives Kind from the populated spec field, applies per-kind
// defaults and rejects malformed entries.
func (e *Event) normalize() error {
	var found []Kind
	mark := func(k Kind, set bool) {
		if set {
			found = append(found, k)
		}
	}
	mark(KindMqttPublish, e.MqttPublish != nil)
	mark(KindMqttSubscribe, e.MqttSubscribe != nil)
	mark(KindMqttUnsubscribe, e.MqttUnsubscribe != nil)
	mark(KindTime, e.Time != nil)
	mark(KindRepeat, e.Repeat != nil)
	mark(KindPeriod, e.Period != nil)
	mark(KindApiCall, e.ApiCall != nil)
	mark(KindApiListen, e.ApiListen != nil)
	mark(KindFileRead, e.FileRead != nil)
	mark(KindFileWrite, e.FileWrite != nil)
	mark(KindWatch, e.Watch != nil)
	mark(KindFileChanged, e.FileChanged != nil)
	mark(KindExecute, e.Execute != nil)
	mark(KindPrint, e.Print != nil)
	mark(KindScanCodeRead, e.ScanCode != nil)
	mark(KindPass, e.Pass != nil)

	switch len(found) {
	case 0:
		return fmt.Errorf("no event kind set")
	case 1:
		e.Kind = found[0]
	default:
		return fmt.Errorf("multiple event kinds set: %v", found)
	}

	if e.NextEvent != "" && e.NextTemplate != "" {
		return fmt.Errorf("next_event and next_event_template are mutually exclusive")
	}

	switch e.Kind {
	case KindApiCall:
		return e.ApiCall.applyDefaults()
	case KindApiListen:
		return e.ApiListen.applyDefaults()
	case KindFileRead:
		return e.FileRead.applyDefaults()
	case KindFileWrite:
		return e.FileWrite.applyDefaults()
	case KindWatch:
		return e.Watch.applyDefaults()
	case KindFileChanged:
		return e.FileChanged.applyDefaults()
	case KindExecute:
		return e.Execute.applyDefaults()
	case KindPrint:
		return e.Print.applyDefaults()
	}
	return nil
}

// UnmarshalYAML decodes a config entry and normalizes it.
func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	type alias Event
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*e = Event(a)
	return e.normalize()
}

// UnmarshalJSON restores a persisted event and normalizes it.
func (e *Event) UnmarshalJSON(b []byte) error {
	type alias Event
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*e = Event(a)
	return e.normalize()
}

// Decode restores one persisted event from its JSON encoding.
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// Encode serializes the event for persistence.
func (e *Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", e.Name, err)
	}
	return b, nil
}

// Equal compares by name only.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Name == other.Name
}

// EventID is the scheduling identity: the explicit id of a time or repeat
// spec when set, the name otherwise.
func (e *Event) EventID() string {
	if s := e.TimeSpec(); s != nil && s.EventID != "" {
		return s.EventID
	}
	return e.Name
}

// TimeSpec returns the time or repeat spec, whichever is populated.
func (e *Event) TimeSpec() *TimeSpec {
	if e.Time != nil {
		return e.Time
	}
	return e.Repeat
}

// HasNext reports whether the event carries any outgoing transition.
func (e *Event) HasNext() bool {
	return e.NextEvent != "" || e.NextTemplate != ""
}

// Clone deep-copies the event so flow mutations never reach the catalog.
func (e *Event) Clone() *Event {
	out := *e
	out.Payload = e.Payload.Clone()
	out.Metadata = e.Metadata.Clone()
	if e.State != nil {
		st := State{Count: e.State.Count}
		if e.State.Replace != nil {
			st.Replace = make(map[string]string, len(e.State.Replace))
			for k, v := range e.State.Replace {
				st.Replace[k] = v
			}
		}
		out.State = &st
	}
	if e.MqttPublish != nil {
		c := *e.MqttPublish
		out.MqttPublish = &c
	}
	if e.MqttSubscribe != nil {
		c := e.MqttSubscribe.clone()
		out.MqttSubscribe = c
	}
	if e.MqttUnsubscribe != nil {
		c := *e.MqttUnsubscribe
		out.MqttUnsubscribe = &c
	}
	if e.Time != nil {
		c := *e.Time
		out.Time = &c
	}
	if e.Repeat != nil {
		c := *e.Repeat
		out.Repeat = &c
	}
	if e.Period != nil {
		c := *e.Period
		out.Period = &c
	}
	if e.ApiCall != nil {
		c := *e.ApiCall
		out.ApiCall = &c
	}
	if e.ApiListen != nil {
		c := *e.ApiListen
		out.ApiListen = &c
	}
	if e.FileRead != nil {
		c := *e.FileRead
		out.FileRead = &c
	}
	if e.FileWrite != nil {
		c := *e.FileWrite
		out.FileWrite = &c
	}
	if e.Watch != nil {
		c := *e.Watch
		out.Watch = &c
	}
	if e.FileChanged != nil {
		c := *e.FileChanged
		out.FileChanged = &c
	}
	if e.Execute != nil {
		out.Execute = e.Execute.clone()
	}
	if e.Print != nil {
		c := *e.Print
		out.Print = &c
	}
	if e.ScanCode != nil {
		c := *e.ScanCode
		out.ScanCode = &c
	}
	if e.Pass != nil {
		c := *e.Pass
		out.Pass = &c
	}
	return &out
}

func (e *Event) String() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.Kind)
}

package event

import "testing"

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"home/door", "home/door", true},
		{"home/door", "home/window", false},
		{"home/door", "home/door/lock", false},
		{"home/+/state", "home/door/state", true},
		{"home/+/state", "home/door/extra/state", false},
		{"home/+", "home", false},
		{"+/door", "home/door", true},
		{"home/#", "home/door", true},
		{"home/#", "home/door/lock/state", true},
		{"home/#", "home", true},
		{"#", "anything/at/all", true},
		{"home/#/state", "home/door/state", false},
		{"home/+/#", "home/door/lock", true},
	}
	for _, tt := range tests {
		if got := TopicMatches(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("TopicMatches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestBodyMatch(t *testing.T) {
	tests := []struct {
		name string
		m    *BodyMatch
		body string
		want bool
	}{
		{"nil matches all", nil, "whatever", true},
		{"exact hit", &BodyMatch{Body: "open"}, "open", true},
		{"exact miss", &BodyMatch{Body: "open"}, "opened", false},
		{"contains hit", &BodyMatch{Contains: "err"}, "fatal error", true},
		{"contains miss", &BodyMatch{Contains: "err"}, "all fine", false},
		{"empty exact matches empty body", &BodyMatch{}, "", true},
		{"empty exact rejects body", &BodyMatch{}, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Matches([]byte(tt.body)); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestSubscribeMatchesTopicAndBody(t *testing.T) {
	s := &MqttSubscribeSpec{Topic: "home/+/door", Body: &BodyMatch{Contains: "open"}}

	if !s.Matches("home/garage/door", []byte("door open")) {
		t.Error("expected topic and body hit to match")
	}
	if s.Matches("home/garage/window", []byte("door open")) {
		t.Error("topic miss must not match")
	}
	if s.Matches("home/garage/door", []byte("closed")) {
		t.Error("body miss must not match")
	}
}

func TestSubscribeScalarShorthandDecodes(t *testing.T) {
	ev := mustDecode(t, "mqtt_subscribe: home/garage/door")
	if ev.MqttSubscribe.Topic != "home/garage/door" {
		t.Fatalf("topic = %q", ev.MqttSubscribe.Topic)
	}
	if ev.MqttSubscribe.Body != nil {
		t.Fatal("shorthand must not constrain the body")
	}
}

package event

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// BodyMatch narrows an MQTT subscription to messages whose body matches
// exactly or contains a substring. A bare string in the config means an
// exact match.
type BodyMatch struct {
	Body     string `yaml:"body" json:"body,omitempty"`
	Contains string `yaml:"contains_string" json:"contains_string,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand for an exact body match.
func (m *BodyMatch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		m.Body = value.Value
		return nil
	}
	type alias BodyMatch
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*m = BodyMatch(a)
	return nil
}

// Matches applies the configured matcher to a message body.
func (m *BodyMatch) Matches(body []byte) bool {
	if m == nil {
		return true
	}
	if m.Contains != "" {
		return strings.Contains(string(body), m.Contains)
	}
	return string(body) == m.Body
}

// MqttSubscribeSpec subscribes a broker topic pattern and matches
// arrivals against it.
type MqttSubscribeSpec struct {
	Topic  string     `yaml:"topic" json:"topic"`
	Body   *BodyMatch `yaml:"body" json:"body,omitempty"`
	PoolID string     `yaml:"pool_id" json:"pool_id,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the topic.
func (s *MqttSubscribeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Topic = value.Value
		return nil
	}
	type alias MqttSubscribeSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = MqttSubscribeSpec(a)
	return nil
}

// Matches reports whether an incoming message on topic with body belongs
// to this subscription.
func (s *MqttSubscribeSpec) Matches(topic string, body []byte) bool {
	return TopicMatches(s.Topic, topic) && s.Body.Matches(body)
}

func (s *MqttSubscribeSpec) clone() *MqttSubscribeSpec {
	c := *s
	if s.Body != nil {
		b := *s.Body
		c.Body = &b
	}
	return &c
}

// TopicMatches implements MQTT filter matching: + spans one level, a
// trailing # spans the rest.
func TopicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	for i, p := range pp {
		if p == "#" {
			return i == len(pp)-1
		}
		if i >= len(tp) {
			return false
		}
		if p == "+" {
			continue
		}
		if p != tp[i] {
			return false
		}
	}
	return len(pp) == len(tp)
}

// MqttPublishSpec publishes the flowing payload, or a rendered template,
// to a topic.
type MqttPublishSpec struct {
	Topic    string `yaml:"topic" json:"topic"`
	Template string `yaml:"template" json:"template,omitempty"`
	Retain   bool   `yaml:"retain" json:"retain,omitempty"`
	PoolID   string `yaml:"pool_id" json:"pool_id,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the topic.
func (s *MqttPublishSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Topic = value.Value
		return nil
	}
	type alias MqttPublishSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = MqttPublishSpec(a)
	return nil
}

// MqttUnsubscribeSpec drops a topic subscription from the pool.
type MqttUnsubscribeSpec struct {
	Topic  string `yaml:"topic" json:"topic"`
	PoolID string `yaml:"pool_id" json:"pool_id,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the topic.
func (s *MqttUnsubscribeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Topic = value.Value
		return nil
	}
	type alias MqttUnsubscribeSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = MqttUnsubscribeSpec(a)
	return nil
}

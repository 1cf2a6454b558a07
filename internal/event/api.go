package event

import (
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eventloom/eventloom/internal/payload"
)

// DataType selects how raw content maps onto a payload variant.
// "text" and "string" are synonyms; HTTP configs tend to say text, file
// and execute configs say string.
type DataType string

const (
	DataString DataType = "string"
	DataText   DataType = "text"
	DataBytes  DataType = "bytes"
	DataJSON   DataType = "json"
)

// PayloadType maps the token onto the payload decoder.
func (d DataType) PayloadType() payload.Type {
	switch d {
	case DataBytes:
		return payload.TypeBytes
	case DataJSON:
		return payload.TypeJSON
	default:
		return payload.TypeString
	}
}

func (d DataType) validate() error {
	switch d {
	case DataString, DataText, DataBytes, DataJSON:
		return nil
	default:
		return fmt.Errorf("unknown data type %q", string(d))
	}
}

// ApiCallSpec performs an outbound HTTP request through a client pool.
type ApiCallSpec struct {
	URL             string   `yaml:"url" json:"url"`
	Method          string   `yaml:"method" json:"method,omitempty"`
	RequestContent  DataType `yaml:"request_content" json:"request_content,omitempty"`
	ResponseContent DataType `yaml:"response_content" json:"response_content,omitempty"`
	PoolID          string   `yaml:"pool_id" json:"pool_id,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the URL.
func (s *ApiCallSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.URL = value.Value
		return nil
	}
	type alias ApiCallSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = ApiCallSpec(a)
	return nil
}

func (s *ApiCallSpec) applyDefaults() error {
	if s.Method == "" {
		s.Method = http.MethodGet
	}
	s.Method = strings.ToUpper(s.Method)
	switch s.Method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
	default:
		return fmt.Errorf("api_call method %q not supported", s.Method)
	}
	if s.RequestContent == "" {
		s.RequestContent = DataJSON
	}
	if s.ResponseContent == "" {
		s.ResponseContent = DataJSON
	}
	if err := s.RequestContent.validate(); err != nil {
		return err
	}
	return s.ResponseContent.validate()
}

// SendsBody reports whether the configured method carries a request body.
func (s *ApiCallSpec) SendsBody() bool {
	return s.Method == http.MethodPut || s.Method == http.MethodPost
}

// ListenAction starts or stops an HTTP listener subscription.
type ListenAction string

const (
	ListenStart ListenAction = "start"
	ListenStop  ListenAction = "stop"
)

// ApiListenSpec registers an endpoint subscription: a URL path prefix plus
// a method, matched first-wins against inbound requests.
type ApiListenSpec struct {
	URL             string       `yaml:"url" json:"url"`
	Method          string       `yaml:"method" json:"method,omitempty"`
	Action          ListenAction `yaml:"action" json:"action,omitempty"`
	RequestContent  DataType     `yaml:"request_content" json:"request_content,omitempty"`
	ResponseContent DataType     `yaml:"response_content" json:"response_content,omitempty"`
	Template        string       `yaml:"template" json:"template,omitempty"`
	PoolID          string       `yaml:"pool_id" json:"pool_id,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand carrying just the URL.
func (s *ApiListenSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.URL = value.Value
		return nil
	}
	type alias ApiListenSpec
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*s = ApiListenSpec(a)
	return nil
}

func (s *ApiListenSpec) applyDefaults() error {
	if s.Method == "" {
		s.Method = http.MethodPost
	}
	if s.Action == "" {
		s.Action = ListenStart
	}
	switch s.Action {
	case ListenStart, ListenStop:
	default:
		return fmt.Errorf("api_listen action %q not supported", s.Action)
	}
	if s.RequestContent == "" {
		s.RequestContent = DataJSON
	}
	if s.ResponseContent == "" {
		s.ResponseContent = DataJSON
	}
	if err := s.RequestContent.validate(); err != nil {
		return err
	}
	return s.ResponseContent.validate()
}

// Matches reports whether an inbound request path and method belong to
// this subscription: prefix match on the path, case-insensitive equality
// on the method.
func (s *ApiListenSpec) Matches(path, method string) bool {
	return strings.HasPrefix(path, s.URL) && strings.EqualFold(method, s.Method)
}

// ReadsBody reports whether the request content should be decoded for the
// given method. Bodies on GET and DELETE are ignored.
func (s *ApiListenSpec) ReadsBody(method string) bool {
	return strings.EqualFold(method, http.MethodPost) || strings.EqualFold(method, http.MethodPut)
}

// Package config loads and validates the configuration document that
// describes a run: the event catalog sources, the start events, the
// connection pools and the optional persistence and location settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eventloom/eventloom/internal/timeparse"
)

// Location is the observer position used for sunrise/sunset expressions.
type Location struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// MqttPool configures one broker connection.
type MqttPool struct {
	ID       string `yaml:"-"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// HTTPEndpoint configures one listener bind address.
type HTTPEndpoint struct {
	ID   string
	Addr string
}

// APIPool configures one outbound request client.
type APIPool struct {
	ID             string            `yaml:"-"`
	DefaultHeaders map[string]string `yaml:"default_headers"`
}

// Group names an event file loaded under a prefix.
type Group struct {
	Prefix string
	File   string
}

// Config is the decoded document. Pool and group collections keep the
// document's order because the empty pool id resolves to the first entry
// and catalog matching is first-wins.
type Config struct {
	StartWith  []string       `yaml:"start_with"`
	Groups     []Group        `yaml:"-"`
	EventFiles []string       `yaml:"event_files"`
	Restore    string         `yaml:"restore"`
	Location   *Location      `yaml:"location"`
	Mqtt       []MqttPool     `yaml:"-"`
	HTTP       []HTTPEndpoint `yaml:"-"`
	API        []APIPool      `yaml:"-"`
	Input      string         `yaml:"input"`

	events *yaml.Node
	dir    string
}

// rawConfig captures the mapping-valued fields as nodes so their order
// survives decoding.
type rawConfig struct {
	StartWith  []string   `yaml:"start_with"`
	Groups     *yaml.Node `yaml:"groups"`
	EventFiles []string   `yaml:"event_files"`
	Events     *yaml.Node `yaml:"events"`
	Restore    string     `yaml:"restore"`
	Location   *Location  `yaml:"location"`
	Mqtt       *yaml.Node `yaml:"mqtt"`
	HTTP       *yaml.Node `yaml:"http"`
	API        *yaml.Node `yaml:"api"`
	Input      string     `yaml:"input"`
}

// Load reads and decodes the document at path. When a location is set it
// becomes the process location before any event parsing happens, since
// sun expressions resolve while the catalog decodes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		StartWith:  raw.StartWith,
		EventFiles: raw.EventFiles,
		Restore:    raw.Restore,
		Location:   raw.Location,
		Input:      raw.Input,
		events:     raw.Events,
		dir:        filepath.Dir(path),
	}
	if cfg.Location != nil {
		timeparse.SetLocation(timeparse.Location{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		})
	}

	if err := eachPair(raw.Groups, "groups", func(key string, val *yaml.Node) error {
		var file string
		if err := val.Decode(&file); err != nil {
			return err
		}
		cfg.Groups = append(cfg.Groups, Group{Prefix: key, File: file})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachPair(raw.Mqtt, "mqtt", func(key string, val *yaml.Node) error {
		p := MqttPool{ID: key, Port: 1883}
		if err := val.Decode(&p); err != nil {
			return err
		}
		p.ID = key
		if p.Port == 0 {
			p.Port = 1883
		}
		if p.Host == "" {
			return fmt.Errorf("no host")
		}
		cfg.Mqtt = append(cfg.Mqtt, p)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachPair(raw.HTTP, "http", func(key string, val *yaml.Node) error {
		var addr string
		if err := val.Decode(&addr); err != nil {
			return err
		}
		if addr == "" {
			return fmt.Errorf("no listen address")
		}
		cfg.HTTP = append(cfg.HTTP, HTTPEndpoint{ID: key, Addr: addr})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachPair(raw.API, "api", func(key string, val *yaml.Node) error {
		p := APIPool{ID: key}
		if err := val.Decode(&p); err != nil {
			return err
		}
		p.ID = key
		cfg.API = append(cfg.API, p)
		return nil
	}); err != nil {
		return nil, err
	}
	// A document without api pools still gets a default request client.
	if len(cfg.API) == 0 {
		cfg.API = []APIPool{{ID: "default"}}
	}

	return cfg, nil
}

// eachPair iterates an ordered YAML mapping node.
func eachPair(node *yaml.Node, section string, fn func(key string, val *yaml.Node) error) error {
	if node == nil || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("config section %s must be a mapping", section)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if err := fn(key, node.Content[i+1]); err != nil {
			return fmt.Errorf("config %s %q: %w", section, key, err)
		}
	}
	return nil
}

// path resolves a file reference relative to the config document.
func (c *Config) path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.dir, file)
}

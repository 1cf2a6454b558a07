// Package eventloom provides a minimal public API for embedding the
// orchestrator in another Go program.
//
// Most integrations should run the loom binary against a configuration
// document. This package exports only the essential types for programs
// that want to load a catalog and feed events programmatically.
package eventloom

import (
	"github.com/eventloom/eventloom/internal/config"
	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

// Version is the loom release version.
const Version = "0.4.0"

// Core types for working with catalogs and events.
type (
	Event   = event.Event
	Catalog = event.Catalog
	Kind    = event.Kind
	Data    = payload.Data
	Config  = config.Config
)

// LoadConfig reads and decodes a configuration document.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// BuildCatalog assembles and validates the event catalog a document
// describes.
func BuildCatalog(cfg *Config) (*Catalog, error) {
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

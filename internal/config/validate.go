package config

import (
	"errors"
	"fmt"

	"github.com/eventloom/eventloom/internal/event"
)

// Validate checks the catalog against the document's invariants. Every
// violation is fatal at startup; the joined error names each offender.
func (c *Config) Validate(cat *event.Catalog) error {
	var errs []error

	hasListen, hasWatch, hasChanged, hasScan := false, false, false, false
	for _, ev := range cat.All() {
		switch ev.Kind {
		case event.KindApiListen:
			hasListen = true
		case event.KindWatch:
			hasWatch = true
		case event.KindFileChanged:
			hasChanged = true
		case event.KindScanCodeRead:
			hasScan = true
		}

		if ev.NextEvent != "" {
			if ev.NextEvent == ev.Name {
				errs = append(errs, fmt.Errorf("event %q transitions to itself", ev.Name))
			} else if !cat.Has(ev.NextEvent) {
				errs = append(errs, fmt.Errorf("event %q: next event %q not found", ev.Name, ev.NextEvent))
			}
		}
	}

	for _, name := range c.StartWith {
		if !cat.Has(name) {
			errs = append(errs, fmt.Errorf("start event %q not found", name))
		}
	}

	if hasListen && len(c.HTTP) == 0 {
		errs = append(errs, fmt.Errorf("api_listen events need at least one http endpoint"))
	}
	if hasWatch != hasChanged {
		errs = append(errs, fmt.Errorf("watch and file_changed events must appear together"))
	}
	if hasScan && c.Input == "" {
		errs = append(errs, fmt.Errorf("scan_code_read events need an input device path"))
	}

	return errors.Join(errs...)
}

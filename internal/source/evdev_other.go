//go:build !linux

package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventloom/eventloom/internal/event"
)

// ScanCodes requires evdev, which only exists on Linux.
type ScanCodes struct{}

func NewScanCodes(device string, _ *event.Catalog, _ chan<- *event.Event, _ *slog.Logger) (*ScanCodes, error) {
	return nil, fmt.Errorf("scan code input from %s is only supported on linux", device)
}

func (s *ScanCodes) Run(context.Context) error { return nil }

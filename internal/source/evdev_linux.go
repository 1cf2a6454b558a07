//go:build linux

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/holoplot/go-evdev"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
)

// ScanCodes reads MSC_SCAN events from one input device and fires the
// matching scan_code_read triggers.
type ScanCodes struct {
	device  string
	catalog *event.Catalog
	queue   chan<- *event.Event
	log     *slog.Logger
}

func NewScanCodes(device string, catalog *event.Catalog, queue chan<- *event.Event, log *slog.Logger) (*ScanCodes, error) {
	return &ScanCodes{device: device, catalog: catalog, queue: queue, log: log}, nil
}

// Run reads the device until ctx is cancelled. ReadOne blocks in the
// kernel, so cancellation rides on closing the device.
func (s *ScanCodes) Run(ctx context.Context) error {
	dev, err := evdev.Open(s.device)
	if err != nil {
		return fmt.Errorf("open input device %s: %w", s.device, err)
	}
	name, _ := dev.Name()
	s.log.Info("reading input device", "device", s.device, "name", name)

	go func() {
		<-ctx.Done()
		dev.Close()
	}()

	for {
		in, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input device %s: %w", s.device, err)
		}
		if in.Type != evdev.EV_MSC || in.Code != evdev.MSC_SCAN {
			continue
		}
		s.handle(int(in.Value))
	}
}

func (s *ScanCodes) handle(code int) {
	match := s.match(code)
	if match == nil {
		s.log.Debug("no trigger for scan code", "code", code)
		return
	}
	next, ok := s.catalog.ResolveNext(match)
	if !ok {
		s.log.Warn("scan_code_read has no next event", "event", match.Name, "code", code)
		return
	}
	meta := match.Metadata.Merge(payload.Metadata{match.Name: map[string]any{
		"scan_code": code,
	}})
	s.log.Debug("scan code matched", "event", match.Name, "code", code, "next", next.Name)
	forward(s.queue, next, match.Payload, meta)
}

func (s *ScanCodes) match(code int) *event.Event {
	for _, ev := range s.catalog.All() {
		if ev.Kind == event.KindScanCodeRead && ev.ScanCode.Code == code {
			return ev
		}
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/eventloom/eventloom/internal/event"
)

// Dir is the directory-backed store. Event ids become file names via
// path escaping, so ids with separators or spaces stay safe.
type Dir struct {
	dir string
	log *slog.Logger
}

var _ Store = (*Dir)(nil)

// Open creates the directory if needed and returns a store over it.
func Open(dir string, log *slog.Logger) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	return &Dir{dir: dir, log: log}, nil
}

func (s *Dir) path(id string) string {
	return filepath.Join(s.dir, url.PathEscape(id)+".json")
}

// Put writes the record through a temp file so a crash mid-write never
// leaves a truncated schedule behind.
func (s *Dir) Put(_ context.Context, id string, ev *event.Event) error {
	b, err := ev.Encode()
	if err != nil {
		return err
	}
	dst := s.path(id)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("store %q: %w", id, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("store %q: %w", id, err)
	}
	return nil
}

// Get loads the record under id. A missing file restores nothing; a
// corrupt one is logged and treated as missing so a bad record never
// blocks startup.
func (s *Dir) Get(_ context.Context, id string) (*event.Event, error) {
	b, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", id, err)
	}
	ev, err := event.Decode(b)
	if err != nil {
		s.log.Warn("discarding corrupt schedule record", "id", id, "error", err)
		return nil, nil
	}
	return ev, nil
}

func (s *Dir) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", id, err)
	}
	return nil
}

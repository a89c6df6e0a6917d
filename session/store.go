// Package session persists per-site browser session state so logins survive
// across runs. Payloads are opaque JSON produced by the page driver; the
// store never inspects them beyond guaranteeing that whatever it hands back
// is well-formed JSON.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// emptyState is the placeholder written when no session exists yet. Keeping
// the file well-formed means Load never fails on a missing or truncated
// file; only the site itself can decide the session inside is stale.
var emptyState = []byte("{}")

// Store reads and writes site-scoped session state files under a directory.
// Each site owns exactly one file; two stores over the same directory are
// still independent as long as they use different site keys.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on first Load or Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(site string) string {
	return filepath.Join(s.dir, site+"_state.json")
}

// Load returns the stored session state for site. If the file is missing,
// empty, or not valid JSON, Load writes the `{}` placeholder and returns it,
// so callers treat "no session" and "fresh environment" uniformly.
func (s *Store) Load(site string) ([]byte, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: mkdir %s: %w", s.dir, err)
	}

	data, err := os.ReadFile(s.path(site))
	switch {
	case os.IsNotExist(err):
		// fall through to placeholder
	case err != nil:
		return nil, fmt.Errorf("session: read %s: %w", site, err)
	case len(data) > 0 && json.Valid(data):
		return data, nil
	}

	if err := s.write(site, emptyState); err != nil {
		return nil, err
	}
	return emptyState, nil
}

// Save persists state for site. A nil or empty state degrades to the
// placeholder so the on-disk invariant (always valid JSON) holds.
func (s *Store) Save(site string, state []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("session: mkdir %s: %w", s.dir, err)
	}
	if len(state) == 0 || !json.Valid(state) {
		state = emptyState
	}
	return s.write(site, state)
}

// write replaces the site file atomically (single writer, rename-into-place).
func (s *Store) write(site string, data []byte) error {
	path := s.path(site)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", site, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("session: rename %s: %w", site, err)
	}
	return nil
}

// IsEmpty reports whether state carries no session at all (the placeholder
// or an all-empty object). Used to skip the restore-and-reload dance on a
// fresh environment.
func IsEmpty(state []byte) bool {
	trimmed := bytes.TrimSpace(state)
	if len(trimmed) == 0 || bytes.Equal(trimmed, emptyState) {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return true
	}
	return len(m) == 0
}

package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/burrow/driver/drivertest"
)

func TestLoadFreshEnvironment(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "sessions"))

	state, err := s.Load("rabbithole")
	if err != nil {
		t.Fatal(err)
	}
	if string(state) != "{}" {
		t.Fatalf("state = %q, want placeholder", state)
	}

	// The placeholder must exist on disk so the next read is uniform.
	data, err := os.ReadFile(filepath.Join(s.dir, "rabbithole_state.json"))
	if err != nil {
		t.Fatalf("placeholder not written: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("placeholder content = %q", data)
	}
}

func TestSaveThenLoad(t *testing.T) {
	s := NewStore(t.TempDir())

	payload := []byte(`{"cookies":[{"name":"sid","value":"abc"}]}`)
	if err := s.Save("telegram", payload); err != nil {
		t.Fatal(err)
	}

	state, err := s.Load("telegram")
	if err != nil {
		t.Fatal(err)
	}
	if string(state) != string(payload) {
		t.Fatalf("state = %q, want %q", state, payload)
	}
}

func TestLoadNormalizesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "rabbithole_state.json"), []byte("{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}

	state, err := s.Load("rabbithole")
	if err != nil {
		t.Fatal(err)
	}
	if string(state) != "{}" {
		t.Fatalf("state = %q, want placeholder", state)
	}
}

func TestSaveEmptyDegradesToPlaceholder(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("telegram", nil); err != nil {
		t.Fatal(err)
	}
	state, err := s.Load("telegram")
	if err != nil {
		t.Fatal(err)
	}
	if string(state) != "{}" {
		t.Fatalf("state = %q, want placeholder", state)
	}
}

func TestSitesDoNotCollide(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("rabbithole", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("telegram", []byte(`{"b":2}`)); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Load("rabbithole")
	b, _ := s.Load("telegram")
	if string(a) == string(b) {
		t.Fatal("sites share state")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		state []byte
		want  bool
	}{
		{nil, true},
		{[]byte("{}"), true},
		{[]byte("  {} \n"), true},
		{[]byte(`{"cookies":[]}`), false},
		{[]byte("not json"), true},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.state); got != tt.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestBootstrapWithoutSession(t *testing.T) {
	s := NewStore(t.TempDir())
	page := drivertest.New()

	if err := Bootstrap(context.Background(), page, s, "telegram", "https://web.telegram.org/k/"); err != nil {
		t.Fatal(err)
	}

	if len(page.Navigations) != 1 {
		t.Fatalf("navigations = %v, want one", page.Navigations)
	}
	if len(page.Restored) != 0 {
		t.Fatal("empty session was restored")
	}
	if page.Reloads != 0 {
		t.Fatal("reloaded without a session to apply")
	}
}

func TestBootstrapRestoresStoredSession(t *testing.T) {
	s := NewStore(t.TempDir())
	payload := []byte(`{"cookies":[{"name":"sid"}]}`)
	if err := s.Save("telegram", payload); err != nil {
		t.Fatal(err)
	}
	page := drivertest.New()

	if err := Bootstrap(context.Background(), page, s, "telegram", "https://web.telegram.org/k/"); err != nil {
		t.Fatal(err)
	}

	if len(page.Restored) != 1 || string(page.Restored[0]) != string(payload) {
		t.Fatalf("restored = %q, want stored payload", page.Restored)
	}
	if page.Reloads != 1 {
		t.Fatalf("reloads = %d, want 1 after restore", page.Reloads)
	}
}

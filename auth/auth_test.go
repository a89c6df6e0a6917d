package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/burrow/driver"
	"github.com/hazyhaar/burrow/driver/drivertest"
	"github.com/hazyhaar/burrow/session"
)

func newAuthenticator(t *testing.T) (*Authenticator, *session.Store) {
	t.Helper()
	store := session.NewStore(t.TempDir())
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestEnsureProbeShortCircuits(t *testing.T) {
	a, store := newAuthenticator(t)
	page := drivertest.New()
	page.Visible[".chatlist"] = true

	loginCalled := false
	flow := Flow{
		Site: "telegram",
		Probe: func(ctx context.Context, pg driver.Page) (bool, error) {
			return pg.IsVisible(ctx, ".chatlist")
		},
		Login: func(context.Context, driver.Page) error {
			loginCalled = true
			return nil
		},
		ReadySelector: "[placeholder]",
	}

	if err := a.Ensure(context.Background(), page, flow); err != nil {
		t.Fatal(err)
	}
	if loginCalled {
		t.Fatal("login submitted despite valid session")
	}
	if page.WaitCalls["[placeholder]"] != 0 {
		t.Fatal("ready marker awaited despite valid session")
	}

	// Success persists the session.
	state, err := store.Load("telegram")
	if err != nil {
		t.Fatal(err)
	}
	if session.IsEmpty(state) {
		t.Fatal("session not persisted after probe success")
	}
}

func TestEnsureWaitsForReadyMarker(t *testing.T) {
	a, _ := newAuthenticator(t)
	page := drivertest.New()
	page.Visible["[placeholder]"] = true

	flow := Flow{Site: "telegram", ReadySelector: "[placeholder]"}
	if err := a.Ensure(context.Background(), page, flow); err != nil {
		t.Fatal(err)
	}
	if page.WaitCalls["[placeholder]"] != 1 {
		t.Fatalf("wait calls = %d, want 1", page.WaitCalls["[placeholder]"])
	}
	if page.Reloads != 0 {
		t.Fatalf("reloads = %d, want 0", page.Reloads)
	}
}

func TestEnsureRetryBound(t *testing.T) {
	a, _ := newAuthenticator(t)
	page := drivertest.New() // marker never becomes visible

	flow := Flow{Site: "telegram", ReadySelector: "[placeholder]"}
	err := a.Ensure(context.Background(), page, flow)

	var failed *ErrAuthFailed
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if failed.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", failed.Attempts)
	}
	if got := page.WaitCalls["[placeholder]"]; got != 3 {
		t.Fatalf("wait calls = %d, want exactly 3", got)
	}
	if page.Reloads != 2 {
		t.Fatalf("reloads = %d, want 2 (between the 3 attempts)", page.Reloads)
	}
	if page.Snapshots != 0 {
		t.Fatal("session persisted despite auth failure")
	}
}

func TestEnsureRecoversOnLaterAttempt(t *testing.T) {
	a, store := newAuthenticator(t)
	page := drivertest.New()
	// Marker appears after the first reload.
	page.OnReload = func(p *drivertest.Page) {
		p.SetVisible("[placeholder]", true)
	}

	flow := Flow{Site: "telegram", ReadySelector: "[placeholder]"}
	if err := a.Ensure(context.Background(), page, flow); err != nil {
		t.Fatal(err)
	}
	if got := page.WaitCalls["[placeholder]"]; got != 2 {
		t.Fatalf("wait calls = %d, want 2", got)
	}

	state, err := store.Load("telegram")
	if err != nil {
		t.Fatal(err)
	}
	if session.IsEmpty(state) {
		t.Fatal("session not persisted after recovery")
	}
}

func TestEnsureCredentialFlow(t *testing.T) {
	a, store := newAuthenticator(t)
	page := drivertest.New()
	page.Visible["input#username"] = true
	page.Visible["input#password"] = true

	flow := Flow{
		Site: "rabbithole",
		Probe: func(ctx context.Context, pg driver.Page) (bool, error) {
			visible, err := pg.IsVisible(ctx, "input#username")
			return !visible, err
		},
		Login: func(ctx context.Context, pg driver.Page) error {
			if err := pg.Fill(ctx, "input#username", "user@example.com"); err != nil {
				return err
			}
			if err := pg.Fill(ctx, "input#password", "hunter2"); err != nil {
				return err
			}
			return pg.Click(ctx, "button[type=submit]")
		},
	}

	if err := a.Ensure(context.Background(), page, flow); err != nil {
		t.Fatal(err)
	}
	if page.Filled["input#username"] != "user@example.com" {
		t.Fatal("username not submitted")
	}
	if len(page.Clicked) != 1 {
		t.Fatalf("clicks = %v, want submit only", page.Clicked)
	}

	state, err := store.Load("rabbithole")
	if err != nil {
		t.Fatal(err)
	}
	if session.IsEmpty(state) {
		t.Fatal("session not persisted after login")
	}
}

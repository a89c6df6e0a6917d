// Package driver defines the page automation capability burrow depends on.
//
// The engine never talks to a browser engine directly: the polling loop,
// the authenticator, and the action handlers only see the Page interface.
// The go-rod implementation lives in this package (rod.go); tests use the
// scriptable fake in drivertest.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Page is a single isolated browsing surface. Every call blocks until the
// operation completes, its timeout elapses, or ctx is cancelled.
//
// Selector composition (nth entry, marker inside an entry) happens in the
// site selector configuration, not here: the surface stays a flat set of
// selector-addressed primitives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitLoad(ctx context.Context) error
	Reload(ctx context.Context) error

	IsVisible(ctx context.Context, selector string) (bool, error)
	// WaitVisible waits until selector is present and visible. On expiry it
	// returns an *ErrWaitTimeout (check with IsTimeout).
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	Fill(ctx context.Context, selector, text string) error
	Press(ctx context.Context, selector, key string) error
	Click(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Count(ctx context.Context, selector string) (int, error)

	// SnapshotSession serialises the page's authentication-relevant state
	// (cookies, origin storage) into an opaque JSON payload suitable for
	// session.Store. RestoreSession applies such a payload; an empty object
	// is a no-op. The engine never inspects the payload.
	SnapshotSession(ctx context.Context) ([]byte, error)
	RestoreSession(ctx context.Context, state []byte) error

	Close() error
}

// ErrWaitTimeout is returned by WaitVisible when the selector did not become
// visible within the timeout. It marks a transient UI condition: callers
// restart the current cycle or count a retry attempt, they do not abort.
type ErrWaitTimeout struct {
	Selector string
	Timeout  time.Duration
}

func (e *ErrWaitTimeout) Error() string {
	return fmt.Sprintf("driver: selector %q not visible after %s", e.Selector, e.Timeout)
}

// IsTimeout reports whether err is (or wraps) an *ErrWaitTimeout.
func IsTimeout(err error) bool {
	var t *ErrWaitTimeout
	return errors.As(err, &t)
}

// Package drivertest provides a scriptable in-memory driver.Page for tests.
// Configure the Visible/Counts/Texts maps up front (or from the hooks) and
// assert on the recorded interactions afterwards.
package drivertest

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/burrow/driver"
)

// Page is a fake driver.Page. The zero value is not usable; call New.
type Page struct {
	mu sync.Mutex

	// Scripted responses.
	Visible map[string]bool
	Counts  map[string]int
	Texts   map[string]string
	Session []byte // returned by SnapshotSession; defaults to a stub payload

	// Hooks, called without the lock held.
	OnReload func(p *Page)
	OnClick  func(p *Page, selector string)

	// Injected failures.
	NavigateErr error

	// Recorded interactions.
	Navigations []string
	Reloads     int
	WaitCalls   map[string]int
	Filled      map[string]string
	Pressed     []string
	Clicked     []string
	Restored    [][]byte
	Snapshots   int
	Closed      bool
}

var _ driver.Page = (*Page)(nil)

// New returns an empty scripted page.
func New() *Page {
	return &Page{
		Visible:   map[string]bool{},
		Counts:    map[string]int{},
		Texts:     map[string]string{},
		WaitCalls: map[string]int{},
		Filled:    map[string]string{},
	}
}

// SetVisible flips a selector's visibility, usable from hooks mid-test.
func (p *Page) SetVisible(selector string, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visible[selector] = visible
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigations = append(p.Navigations, url)
	return p.NavigateErr
}

func (p *Page) WaitLoad(context.Context) error { return nil }

func (p *Page) Reload(context.Context) error {
	p.mu.Lock()
	p.Reloads++
	hook := p.OnReload
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) IsVisible(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Visible[selector], nil
}

func (p *Page) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	p.WaitCalls[selector]++
	visible := p.Visible[selector]
	p.mu.Unlock()
	if !visible {
		return &driver.ErrWaitTimeout{Selector: selector, Timeout: timeout}
	}
	return nil
}

func (p *Page) Fill(_ context.Context, selector, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Filled[selector] = text
	return nil
}

func (p *Page) Press(_ context.Context, selector, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pressed = append(p.Pressed, selector+"|"+key)
	return nil
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	p.Clicked = append(p.Clicked, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) Text(_ context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Texts[selector], nil
}

func (p *Page) Count(_ context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Counts[selector], nil
}

func (p *Page) SnapshotSession(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Snapshots++
	if p.Session == nil {
		return []byte(`{"cookies":[{"name":"stub"}]}`), nil
	}
	return p.Session, nil
}

func (p *Page) RestoreSession(_ context.Context, state []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Restored = append(p.Restored, state)
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

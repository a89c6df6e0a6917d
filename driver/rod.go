package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// RodPage implements Page on top of a go-rod page. One RodPage corresponds
// to one tab inside an isolated (incognito) browser context, so cookie and
// storage scope never leaks between sites.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps an existing rod page.
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("driver: navigate %s: %w", url, err)
	}
	return nil
}

func (p *RodPage) WaitLoad(ctx context.Context) error {
	if err := p.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("driver: wait load: %w", err)
	}
	return nil
}

func (p *RodPage) Reload(ctx context.Context) error {
	if err := p.page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("driver: reload: %w", err)
	}
	return nil
}

func (p *RodPage) IsVisible(ctx context.Context, selector string) (bool, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return false, fmt.Errorf("driver: query %s: %w", selector, err)
	}
	if els.Empty() {
		return false, nil
	}
	visible, err := els.First().Visible()
	if err != nil {
		return false, fmt.Errorf("driver: visibility %s: %w", selector, err)
	}
	return visible, nil
}

func (p *RodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	pg := p.page.Context(ctx).Timeout(timeout)
	el, err := pg.Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ErrWaitTimeout{Selector: selector, Timeout: timeout}
		}
		return fmt.Errorf("driver: element %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ErrWaitTimeout{Selector: selector, Timeout: timeout}
		}
		return fmt.Errorf("driver: wait visible %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Fill(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("driver: element %s: %w", selector, err)
	}
	// Select any prefilled value first so Fill overwrites instead of appending.
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("driver: select text %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("driver: fill %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Press(ctx context.Context, selector, key string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("driver: element %s: %w", selector, err)
	}
	var k input.Key
	switch key {
	case "Enter":
		k = input.Enter
	case "Tab":
		k = input.Tab
	case "Escape":
		k = input.Escape
	default:
		return fmt.Errorf("driver: unsupported key %q", key)
	}
	if err := el.Type(k); err != nil {
		return fmt.Errorf("driver: press %s on %s: %w", key, selector, err)
	}
	return nil
}

func (p *RodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("driver: element %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("driver: click %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("driver: element %s: %w", selector, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("driver: text %s: %w", selector, err)
	}
	return text, nil
}

func (p *RodPage) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("driver: query %s: %w", selector, err)
	}
	return len(els), nil
}

// sessionPayload is the JSON shape of a snapshotted session. It stays an
// implementation detail of the rod driver; everything above treats it as
// opaque bytes.
type sessionPayload struct {
	Cookies []*proto.NetworkCookieParam `json:"cookies,omitempty"`
	Storage map[string]string           `json:"storage,omitempty"`
}

func (p *RodPage) SnapshotSession(ctx context.Context) ([]byte, error) {
	pg := p.page.Context(ctx)

	cookies, err := pg.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("driver: cookies: %w", err)
	}

	payload := sessionPayload{
		Cookies: proto.CookiesToParams(cookies),
		Storage: map[string]string{},
	}

	// Telegram web keeps its authentication in localStorage, so cookies
	// alone are not enough for session reuse.
	res, err := pg.Eval(`() => JSON.stringify(Object.assign({}, localStorage))`)
	if err != nil {
		return nil, fmt.Errorf("driver: read storage: %w", err)
	}
	if raw := res.Value.Str(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload.Storage); err != nil {
			return nil, fmt.Errorf("driver: decode storage: %w", err)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("driver: encode session: %w", err)
	}
	return data, nil
}

func (p *RodPage) RestoreSession(ctx context.Context, state []byte) error {
	if len(state) == 0 {
		return nil
	}
	var payload sessionPayload
	if err := json.Unmarshal(state, &payload); err != nil {
		return fmt.Errorf("driver: decode session: %w", err)
	}
	pg := p.page.Context(ctx)

	if len(payload.Cookies) > 0 {
		if err := pg.SetCookies(payload.Cookies); err != nil {
			return fmt.Errorf("driver: set cookies: %w", err)
		}
	}
	if len(payload.Storage) > 0 {
		_, err := pg.Eval(`(items) => {
			for (const k in items) localStorage.setItem(k, items[k])
		}`, payload.Storage)
		if err != nil {
			return fmt.Errorf("driver: restore storage: %w", err)
		}
	}
	return nil
}

func (p *RodPage) Close() error {
	if p.page != nil {
		return p.page.Close()
	}
	return nil
}

// Package journal implements the polling loop over the journal site: detect
// the newest eligible entry, record it in the ledger exactly once, and hand
// it to the dispatcher.
package journal

import (
	"context"
	"fmt"
	"time"
)

// Entry is a journal item as extracted in one poll cycle. Produced
// transiently; either recorded (first time seen) or discarded, never
// mutated. Identity is the (Title, Date, Time) triple.
type Entry struct {
	Title string
	Date  string
	Time  string

	// HasStructuredMarker is true when the UI renders a non-text indicator
	// next to the entry. Such entries are permanently ignored: never
	// recorded, never dispatched, re-evaluated every cycle.
	HasStructuredMarker bool
}

// Dispatcher receives each newly recorded entry. Implemented by the dispatch
// package; declared here so the poller stays free of routing concerns.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry Entry) error
}

// Credentials authenticate against the journal site. Sourced from the
// environment, never from the config file.
type Credentials struct {
	Email    string
	Password string
}

// Selectors is the journal site's markup surface. The engine composes the
// per-entry selectors from List, keeping its own logic independent of the
// site's markup.
type Selectors struct {
	// List matches every rendered entry item in the journal view.
	List string `yaml:"list"`
	// Marker, scoped inside an entry, matches the structured-content
	// indicator that disqualifies it.
	Marker string `yaml:"marker"`

	Title string `yaml:"title"`
	Date  string `yaml:"date"`
	Time  string `yaml:"time"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Submit   string `yaml:"submit"`
}

// EntryAt returns the selector for the i-th (0-based) rendered entry.
func (s Selectors) EntryAt(i int) string {
	return fmt.Sprintf("%s:nth-of-type(%d)", s.List, i+1)
}

// MarkerAt returns the selector for the structured marker inside the i-th
// entry.
func (s Selectors) MarkerAt(i int) string {
	return s.EntryAt(i) + " " + s.Marker
}

// Config configures the poller for one journal site.
type Config struct {
	// Site keys the session state file.
	Site string `yaml:"site"`
	// BaseURL is where the login flow runs.
	BaseURL string `yaml:"base_url"`
	// ListURL is the journal listing view polled every cycle.
	ListURL string `yaml:"list_url"`

	Selectors Selectors `yaml:"selectors"`

	// ListTimeout bounds the wait for the entry list to render. Default 15s.
	ListTimeout time.Duration `yaml:"list_timeout"`
	// LoginTimeout bounds each wait during credential submission. Default 30s.
	LoginTimeout time.Duration `yaml:"login_timeout"`
	// PollInterval paces cycles. Default 5s.
	PollInterval time.Duration `yaml:"poll_interval"`

	Credentials Credentials `yaml:"-"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Site == "" {
		c.Site = "rabbithole"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://hole.rabbit.tech"
	}
	if c.ListURL == "" {
		c.ListURL = c.BaseURL + "/journal/details"
	}
	if c.ListTimeout <= 0 {
		c.ListTimeout = 15 * time.Second
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	s := &c.Selectors
	if s.List == "" {
		s.List = ".w-full:nth-child(2) > .mb-8 li"
	}
	if s.Marker == "" {
		s.Marker = "svg"
	}
	if s.Title == "" {
		s.Title = ".text-white-400"
	}
	if s.Date == "" {
		s.Date = ".text-sm > div:nth-child(1)"
	}
	if s.Time == "" {
		s.Time = ".text-sm > div:nth-child(2)"
	}
	if s.Username == "" {
		s.Username = "input#username"
	}
	if s.Password == "" {
		s.Password = "input#password"
	}
	if s.Submit == "" {
		s.Submit = `button[type="submit"][data-action-button-primary="true"]`
	}
}

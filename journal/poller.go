package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/burrow/auth"
	"github.com/hazyhaar/burrow/driver"
	"github.com/hazyhaar/burrow/ledger"
)

// state names one step of the poll cycle.
type state int

const (
	stateNavigate state = iota
	stateAwaitList
	stateSelectEntry
	stateExtract
	stateDedup
	stateDispatch
	stateDone
)

func (s state) String() string {
	switch s {
	case stateNavigate:
		return "navigate"
	case stateAwaitList:
		return "await_list"
	case stateSelectEntry:
		return "select_entry"
	case stateExtract:
		return "extract"
	case stateDedup:
		return "dedup"
	case stateDispatch:
		return "dispatch"
	default:
		return "done"
	}
}

// action is the recovery policy when a state fails.
type action int

const (
	restartCycle action = iota // transient: log and start the next cycle
	abortRun                   // unrecoverable: surface to the caller
)

// transitions maps each failing state to its recovery action. Navigation
// and ledger failures abort (browser gone, database broken); everything UI
// is transient and restarts the cycle. A failing handler also restarts: the
// entry is already recorded, the side effect is not retried.
var transitions = map[state]action{
	stateNavigate:    abortRun,
	stateAwaitList:   restartCycle,
	stateSelectEntry: restartCycle,
	stateExtract:     restartCycle,
	stateDedup:       abortRun,
	stateDispatch:    restartCycle,
}

// Stats are point-in-time poller counters.
type Stats struct {
	Cycles     int64 `json:"cycles"`
	Restarts   int64 `json:"restarts"`
	Recorded   int64 `json:"recorded"`
	Duplicates int64 `json:"duplicates"`
	Dispatches int64 `json:"dispatches"`
}

// Poller runs the journal poll loop on a single page.
type Poller struct {
	cfg        Config
	page       driver.Page
	ledger     *ledger.Ledger
	auth       *auth.Authenticator
	dispatcher Dispatcher
	logger     *slog.Logger

	cycles     atomic.Int64
	restarts   atomic.Int64
	recorded   atomic.Int64
	duplicates atomic.Int64
	dispatches atomic.Int64
}

// New creates a Poller. The page must already be navigated to the site's
// base URL with any stored session applied (session.Bootstrap).
func New(cfg Config, page driver.Page, led *ledger.Ledger, a *auth.Authenticator, d Dispatcher, logger *slog.Logger) *Poller {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:        cfg,
		page:       page,
		ledger:     led,
		auth:       a,
		dispatcher: d,
		logger:     logger,
	}
}

// Stats returns a snapshot of the poller counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:     p.cycles.Load(),
		Restarts:   p.restarts.Load(),
		Recorded:   p.recorded.Load(),
		Duplicates: p.duplicates.Load(),
		Dispatches: p.dispatches.Load(),
	}
}

// Run authenticates once, then polls until ctx is cancelled or an
// unrecoverable error occurs. Exhausted login retries abort the run.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.auth.Ensure(ctx, p.page, p.loginFlow()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p.cycles.Add(1)
		if err := p.cycle(ctx, uuid.NewString()); err != nil {
			return err
		}

		if err := sleepCtx(ctx, p.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// loginFlow is the journal site's authentication shape: the username field
// being absent means an existing session is still honored; otherwise
// credentials are filled and submitted.
func (p *Poller) loginFlow() auth.Flow {
	sel := p.cfg.Selectors
	return auth.Flow{
		Site: p.cfg.Site,
		Probe: func(ctx context.Context, pg driver.Page) (bool, error) {
			visible, err := pg.IsVisible(ctx, sel.Username)
			return !visible, err
		},
		Login: func(ctx context.Context, pg driver.Page) error {
			if err := pg.WaitVisible(ctx, sel.Username, p.cfg.LoginTimeout); err != nil {
				return err
			}
			if err := pg.Fill(ctx, sel.Username, p.cfg.Credentials.Email); err != nil {
				return err
			}
			if err := pg.WaitVisible(ctx, sel.Password, p.cfg.LoginTimeout); err != nil {
				return err
			}
			if err := pg.Fill(ctx, sel.Password, p.cfg.Credentials.Password); err != nil {
				return err
			}
			if err := pg.Click(ctx, sel.Submit); err != nil {
				return err
			}
			return pg.WaitLoad(ctx)
		},
	}
}

// cycle walks the state machine once. Transient failures consult the
// transition table and end the cycle; abort-class failures propagate.
func (p *Poller) cycle(ctx context.Context, id string) error {
	st := stateNavigate
	var entry Entry

	for st != stateDone {
		next, err := p.step(ctx, st, &entry)
		if err != nil {
			if transitions[st] == restartCycle {
				p.restarts.Add(1)
				p.logger.Info("journal: cycle restarted",
					"cycle", id, "state", st.String(), "reason", err)
				return nil
			}
			return fmt.Errorf("journal: %s: %w", st, err)
		}
		st = next
	}
	return nil
}

// errNoEligibleEntry restarts the cycle when every rendered entry carries a
// structured marker. No upper bound: the feed is expected to eventually
// re-render with plain entries, and the restart counter makes a feed that
// never does visible to the operator.
var errNoEligibleEntry = fmt.Errorf("journal: no entry without structured marker")

func (p *Poller) step(ctx context.Context, st state, entry *Entry) (state, error) {
	sel := p.cfg.Selectors

	switch st {
	case stateNavigate:
		if err := p.page.Navigate(ctx, p.cfg.ListURL); err != nil {
			return st, err
		}
		if err := p.page.WaitLoad(ctx); err != nil {
			return st, err
		}
		return stateAwaitList, nil

	case stateAwaitList:
		p.logger.Debug("journal: waiting for entries", "selector", sel.List)
		if err := p.page.WaitVisible(ctx, sel.List, p.cfg.ListTimeout); err != nil {
			return st, err
		}
		return stateSelectEntry, nil

	case stateSelectEntry:
		n, err := p.page.Count(ctx, sel.List)
		if err != nil {
			return st, err
		}
		for i := 0; i < n; i++ {
			marked, err := p.page.Count(ctx, sel.MarkerAt(i))
			if err != nil {
				return st, err
			}
			if marked > 0 {
				continue
			}
			if err := p.page.Click(ctx, sel.EntryAt(i)); err != nil {
				return st, err
			}
			return stateExtract, nil
		}
		return st, errNoEligibleEntry

	case stateExtract:
		var err error
		if entry.Title, err = p.page.Text(ctx, sel.Title); err != nil {
			return st, err
		}
		if entry.Date, err = p.page.Text(ctx, sel.Date); err != nil {
			return st, err
		}
		if entry.Time, err = p.page.Text(ctx, sel.Time); err != nil {
			return st, err
		}
		return stateDedup, nil

	case stateDedup:
		exists, err := p.ledger.Exists(ctx, entry.Title, entry.Date, entry.Time)
		if err != nil {
			return st, err
		}
		if exists {
			p.duplicates.Add(1)
			p.logger.Debug("journal: entry already recorded", "title", entry.Title)
			return stateDone, nil
		}
		if _, err := p.ledger.Insert(ctx, entry.Title, entry.Date, entry.Time); err != nil {
			return st, err
		}
		p.recorded.Add(1)
		p.logger.Info("journal: recorded entry",
			"title", entry.Title, "date", entry.Date, "time", entry.Time)
		return stateDispatch, nil

	case stateDispatch:
		p.dispatches.Add(1)
		if err := p.dispatcher.Dispatch(ctx, *entry); err != nil {
			return st, err
		}
		return stateDone, nil
	}

	return stateDone, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

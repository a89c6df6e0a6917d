package session

import (
	"context"
	"fmt"

	"github.com/hazyhaar/burrow/driver"
)

// Bootstrap navigates page to url with the stored session for site applied.
//
// Cookies and origin storage can only be restored once the page is on the
// right origin, so the sequence is navigate, restore, reload. With no stored
// session the restore and reload are skipped and the site sees a clean
// first visit.
func Bootstrap(ctx context.Context, page driver.Page, store *Store, site, url string) error {
	state, err := store.Load(site)
	if err != nil {
		return err
	}

	if err := page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("session: bootstrap %s: %w", site, err)
	}
	if err := page.WaitLoad(ctx); err != nil {
		return fmt.Errorf("session: bootstrap %s: %w", site, err)
	}

	if IsEmpty(state) {
		return nil
	}

	if err := page.RestoreSession(ctx, state); err != nil {
		return fmt.Errorf("session: restore %s: %w", site, err)
	}
	if err := page.Reload(ctx); err != nil {
		return fmt.Errorf("session: bootstrap %s: %w", site, err)
	}
	if err := page.WaitLoad(ctx); err != nil {
		return fmt.Errorf("session: bootstrap %s: %w", site, err)
	}
	return nil
}

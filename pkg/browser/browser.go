// Package browser abstracts the host that owns the tabs the guard protects:
// the operations the guard can perform on a tab and the badge and
// notification surfaces it updates.
package browser

import (
	"context"
	"urlguard/pkg/domain"
)

// Badge is the toolbar badge state of a tab.
type Badge struct {
	Text  string
	Color string
}

// Notification is a user-facing system notification.
type Notification struct {
	Title   string
	Message string
}

// Browser is implemented by browser hosts. Implementations must be safe for
// concurrent use; the guard calls them from many goroutines.
type Browser interface {
	// Redirect navigates tab to URL.
	Redirect(ctx context.Context, tab domain.TabID, URL string) error
	// InjectScript runs script in the tab's current document.
	InjectScript(ctx context.Context, tab domain.TabID, script string) error
	// SetBadge updates the toolbar badge of tab.
	SetBadge(ctx context.Context, tab domain.TabID, badge Badge) error
	// Notify shows a system notification.
	Notify(ctx context.Context, n Notification) error
}

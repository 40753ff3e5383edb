// Package browsertest provides an in-memory browser.Browser that records
// every call, for tests of code driving a browser.
package browsertest

import (
	"context"
	"sync"
	"urlguard/pkg/browser"
	"urlguard/pkg/domain"
)

// Redirect is a recorded Redirect call.
type Redirect struct {
	Tab domain.TabID
	URL string
}

// Injection is a recorded InjectScript call.
type Injection struct {
	Tab    domain.TabID
	Script string
}

// BadgeUpdate is a recorded SetBadge call.
type BadgeUpdate struct {
	Tab   domain.TabID
	Badge browser.Badge
}

// Recorder records browser calls. Errors configured through the Fail fields
// are returned by the matching method, after the call was recorded.
type Recorder struct {
	mu sync.Mutex

	Redirects     []Redirect
	Injections    []Injection
	Badges        []BadgeUpdate
	Notifications []browser.Notification

	FailRedirect error
	FailInject   error
}

// New returns an empty Recorder.
func New() *Recorder { return &Recorder{} }

func (r *Recorder) Redirect(_ context.Context, tab domain.TabID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Redirects = append(r.Redirects, Redirect{Tab: tab, URL: url})

	return r.FailRedirect
}

func (r *Recorder) InjectScript(_ context.Context, tab domain.TabID, script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Injections = append(r.Injections, Injection{Tab: tab, Script: script})

	return r.FailInject
}

func (r *Recorder) SetBadge(_ context.Context, tab domain.TabID, badge browser.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Badges = append(r.Badges, BadgeUpdate{Tab: tab, Badge: badge})

	return nil
}

func (r *Recorder) Notify(_ context.Context, n browser.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notifications = append(r.Notifications, n)

	return nil
}

// Snapshot returns copies of the recorded calls.
func (r *Recorder) Snapshot() (redirects []Redirect, injections []Injection, badges []BadgeUpdate, notes []browser.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Redirect(nil), r.Redirects...),
		append([]Injection(nil), r.Injections...),
		append([]BadgeUpdate(nil), r.Badges...),
		append([]browser.Notification(nil), r.Notifications...)
}

var _ browser.Browser = (*Recorder)(nil)

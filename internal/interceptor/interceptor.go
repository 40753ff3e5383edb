// Package interceptor decides what happens to every navigation attempt. The
// browser host's pre-navigation and tab-status hooks are thin adapters over
// the single Decide function.
//
// Gate order for a pre-navigation attempt: system URLs are skipped, a URL in
// the block registry is blocked without any network call, otherwise a
// priority classification decides. A tab that starts loading replays only
// the registry gate; a tab that completed is classified with the cache
// allowed and, if found dangerous, has its content replaced instead of being
// redirected. The registry always wins over a fresh classification.
package interceptor

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"urlguard/internal/blocklist"
	"urlguard/internal/classifier"
	"urlguard/internal/injector"
	"urlguard/pkg/browser"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"
	"urlguard/pkg/metrics"
	"urlguard/pkg/serrors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Badge colors per risk level.
const (
	ColorHigh    = "#F44336"
	ColorMedium  = "#FF9800"
	ColorLow     = "#4CAF50"
	ColorUnknown = "#9E9E9E"
)

// Reporter receives every completed classification.
type Reporter interface {
	Report(ctx context.Context, url string, res domain.ClassificationResult, tab domain.TabID) error
}

// Options wires an Interceptor.
type Options struct {
	Browser    browser.Browser
	Classifier *classifier.Classifier
	Registry   *blocklist.Registry
	// Reporter may be nil to disable incident reporting.
	Reporter Reporter
	// BlockPage is the address redirected to for blocked navigations.
	BlockPage string
	Clock     clock.PassiveClock
	Metrics   *metrics.Guard
}

// Interceptor is safe for concurrent use.
type Interceptor struct {
	browser    browser.Browser
	classifier *classifier.Classifier
	registry   *blocklist.Registry
	reporter   Reporter
	blockPage  string
	clock      clock.PassiveClock
	metrics    *metrics.Guard
	tracer     trace.Tracer

	reports sync.WaitGroup
}

// New creates an Interceptor.
func New(opts Options) *Interceptor {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	return &Interceptor{
		browser:    opts.Browser,
		classifier: opts.Classifier,
		registry:   opts.Registry,
		reporter:   opts.Reporter,
		blockPage:  opts.BlockPage,
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		tracer:     otel.Tracer("urlguard/interceptor"),
	}
}

// Decide runs one navigation attempt to a terminal state and applies its
// side effects to the tab. It never fails: classifier errors allow the
// navigation and browser errors are logged.
func (i *Interceptor) Decide(ctx context.Context, nav domain.Navigation) domain.Decision {
	ctx = logger.WithFields(ctx,
		zap.String("url", nav.URL),
		zap.Int("tab_id", int(nav.TabID)),
		zap.String("trigger", string(nav.Trigger)))
	ctx, span := i.tracer.Start(ctx, "interceptor.Decide", trace.WithAttributes(
		attribute.String("url", nav.URL),
		attribute.String("trigger", string(nav.Trigger)),
	))
	defer span.End()

	d := i.decide(ctx, nav)

	span.SetAttributes(attribute.String("state", string(d.State)))
	i.metrics.Decision(ctx, string(nav.Trigger), string(d.State))
	logger.Info(ctx, "navigation decided",
		zap.String("state", string(d.State)),
		zap.Bool("from_registry", d.FromRegistry),
		zap.Bool("classification_failed", d.ClassificationFailed),
		zap.String("enforcement", string(d.Enforcement)))

	return d
}

// isBlockPage reports whether url is the guard's own blocking page. Its
// query embeds the blocked URL, so classifying it would report the block
// page itself.
func (i *Interceptor) isBlockPage(url string) bool {
	return i.blockPage != "" && strings.HasPrefix(url, i.blockPage)
}

func (i *Interceptor) decide(ctx context.Context, nav domain.Navigation) domain.Decision {
	d := domain.Decision{Navigation: nav, State: domain.StateUnchecked}

	if nav.URL == "" || !nav.Trigger.Valid() || i.classifier.IsSystem(nav.URL) || i.isBlockPage(nav.URL) {
		d.State = domain.StateSkipped

		return d
	}

	switch nav.Trigger {
	case domain.TriggerPreNavigation:
		if i.registry.IsBlocked(nav.URL) {
			return i.blockFromRegistry(ctx, d, domain.EnforcementRedirect)
		}

		return i.classify(ctx, d, true, domain.EnforcementRedirect)

	case domain.TriggerTabLoading:
		if i.registry.IsBlocked(nav.URL) {
			return i.blockFromRegistry(ctx, d, domain.EnforcementRedirect)
		}
		d.State = domain.StateSkipped

		return d

	default: // domain.TriggerTabComplete
		if i.registry.IsBlocked(nav.URL) {
			return i.blockFromRegistry(ctx, d, domain.EnforcementInjection)
		}

		return i.classify(ctx, d, false, domain.EnforcementInjection)
	}
}

func (i *Interceptor) classify(
	ctx context.Context,
	d domain.Decision,
	priority bool,
	enforcement domain.Enforcement) domain.Decision {
	d.State = domain.StateChecking

	// A late result still updates the cache and the tab; the caller going
	// away does not cancel the classification.
	out := i.classifier.Classify(context.WithoutCancel(ctx), d.Navigation.URL, priority)
	if out.Failed() {
		d.State = domain.StateAllowed
		d.ClassificationFailed = true
		i.badge(ctx, d.Navigation.TabID, nil)

		return d
	}
	if !out.FromCache && !out.System {
		i.report(ctx, d.Navigation, *out.Result)
	}

	d.Result = out.Result
	if out.Result.IsHigh() {
		i.registry.MarkBlocked(ctx, d.Navigation.URL)

		return i.block(ctx, d, enforcement)
	}

	// Another attempt may have blocked the URL while this one was classifying.
	if i.registry.IsBlocked(d.Navigation.URL) {
		d.FromRegistry = true

		return i.block(ctx, d, enforcement)
	}

	if out.Result.RiskLevel == domain.RiskLevelMedium {
		d.State = domain.StateWarned
	} else {
		d.State = domain.StateAllowed
	}
	i.badge(ctx, d.Navigation.TabID, out.Result)

	return d
}

func (i *Interceptor) blockFromRegistry(ctx context.Context, d domain.Decision, enforcement domain.Enforcement) domain.Decision {
	d.FromRegistry = true

	return i.block(ctx, d, enforcement)
}

func (i *Interceptor) block(ctx context.Context, d domain.Decision, enforcement domain.Enforcement) domain.Decision {
	d.State = domain.StateBlocked
	nav := d.Navigation

	if enforcement == domain.EnforcementRedirect {
		target, err := BlockPageURL(i.blockPage, nav.URL, i.clock.Now())
		if err == nil {
			err = i.browser.Redirect(ctx, nav.TabID, target)
		}
		if err == nil {
			d.Enforcement = domain.EnforcementRedirect
			d.RedirectURL = target
		} else {
			logger.Warn(ctx, "redirect to block page failed, injecting", zap.Error(err))
			enforcement = domain.EnforcementInjection
		}
	}

	if enforcement == domain.EnforcementInjection {
		if err := injector.Inject(ctx, i.browser, nav.TabID, nav.URL, d.Result); err == nil {
			d.Enforcement = domain.EnforcementInjection
		}
	}

	i.badge(ctx, nav.TabID, &domain.ClassificationResult{RiskLevel: domain.RiskLevelHigh})
	i.notify(ctx, nav.URL, d.Result)

	return d
}

func (i *Interceptor) badge(ctx context.Context, tab domain.TabID, res *domain.ClassificationResult) {
	b := browser.Badge{Color: ColorUnknown}
	if res != nil {
		switch res.RiskLevel {
		case domain.RiskLevelHigh:
			b = browser.Badge{Text: "!", Color: ColorHigh}
		case domain.RiskLevelMedium:
			b.Color = ColorMedium
		default:
			b.Color = ColorLow
		}
	}

	if err := i.browser.SetBadge(ctx, tab, b); err != nil {
		logger.Warn(ctx, "could not update badge", zap.Error(err))
	}
}

func (i *Interceptor) notify(ctx context.Context, url string, res *domain.ClassificationResult) {
	n := browser.Notification{
		Title:   "Dangerous website blocked",
		Message: "Access to " + url + " was blocked because it was identified as high risk.",
	}
	if res != nil {
		n.Message += " Risk score: " + strconv.Itoa(res.RiskScore) + "/100."
	}
	if err := i.browser.Notify(ctx, n); err != nil {
		logger.Warn(ctx, "could not show notification", zap.Error(err))
	}
}

// report delivers the incident in the background; the decision never waits for it.
func (i *Interceptor) report(ctx context.Context, nav domain.Navigation, res domain.ClassificationResult) {
	if i.reporter == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	i.reports.Add(1)
	go func() {
		defer i.reports.Done()
		_ = i.reporter.Report(ctx, nav.URL, res, nav.TabID)
	}()
}

// Wait blocks until background incident deliveries finished.
func (i *Interceptor) Wait() {
	i.reports.Wait()
}

// Analyze classifies url on behalf of a client without touching any tab.
// Dangerous results still mark the registry and are reported.
func (i *Interceptor) Analyze(ctx context.Context, url string) (*domain.ClassificationResult, error) {
	out := i.classifier.Classify(ctx, url, false)
	if out.Failed() {
		return nil, out.Err
	}
	if !out.FromCache && !out.System {
		i.report(ctx, domain.Navigation{URL: url}, *out.Result)
	}
	if out.Result.IsHigh() {
		i.registry.MarkBlocked(ctx, url)
	}

	return out.Result, nil
}

// Cached returns the fresh cached classification of url, if any.
func (i *Interceptor) Cached(url string) (*domain.ClassificationResult, bool) {
	return i.classifier.Cached(url)
}

// Unblock removes url from the registry. It reports ErrNotFound when url
// was not blocked.
func (i *Interceptor) Unblock(ctx context.Context, url string) error {
	if !i.registry.Unblock(ctx, url) {
		return serrors.With(serrors.ErrNotFound, "%s is not blocked", url)
	}

	return nil
}

// Blocked lists the blocked URLs.
func (i *Interceptor) Blocked() []string {
	return i.registry.List()
}

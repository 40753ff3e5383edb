package browser

import (
	"context"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"

	"go.uber.org/zap"
)

// Detached is used when the guard runs without a hosted browser. Tabs belong
// to the API caller, which applies the returned decision itself, so every
// operation is only logged.
type Detached struct{}

var _ Browser = Detached{}

func (Detached) Redirect(ctx context.Context, tab domain.TabID, URL string) error {
	logger.Debug(ctx, "redirect left to caller", zap.Int("tabId", int(tab)), zap.String("redirectUrl", URL))

	return nil
}

func (Detached) InjectScript(ctx context.Context, tab domain.TabID, _ string) error {
	logger.Debug(ctx, "injection left to caller", zap.Int("tabId", int(tab)))

	return nil
}

func (Detached) SetBadge(ctx context.Context, tab domain.TabID, badge Badge) error {
	logger.Debug(ctx, "badge updated", zap.Int("tabId", int(tab)), zap.String("text", badge.Text), zap.String("color", badge.Color))

	return nil
}

func (Detached) Notify(ctx context.Context, n Notification) error {
	logger.Info(ctx, n.Title, zap.String("message", n.Message))

	return nil
}

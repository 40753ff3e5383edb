package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"urlguard/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap/exp/zapslog"
	"riverqueue.com/riverui"
)

// NewUI serves the River dashboard for the incident queue of client under
// prefix (e.g. "/riverui"). Operators use it to inspect retried, snoozed and
// cancelled deliveries.
func NewUI(ctx context.Context, client *river.Client[pgx.Tx], prefix string) (http.Handler, error) {
	handler, err := riverui.NewHandler(&riverui.HandlerOpts{
		Endpoints: riverui.NewEndpoints(client, nil),
		Logger:    slog.New(zapslog.NewHandler(logger.Get(ctx).Named("riverui").Core())),
		Prefix:    prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river ui: %w", err)
	}

	if err := handler.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river ui: %w", err)
	}

	return handler, nil
}

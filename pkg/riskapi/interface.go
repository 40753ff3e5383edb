// Package riskapi defines the contract of the remote risk backend: URL
// classification and incident intake.
package riskapi

import (
	"context"
	"urlguard/pkg/domain"
)

// Client is the abstraction over the risk backend. Implementations return
// semantic errors from pkg/serrors: ErrUnavailable for transport failures,
// ErrTimeout for deadlines, ErrRateLimited for 429 responses, ErrBadRequest
// for other 4xx responses and ErrUpstream for any other non-2xx status or a
// payload that breaks the contract.
//
//go:generate mockgen -package mockriskapi -source=interface.go -destination=mock/mockriskapi.go *
type Client interface {
	// CheckURL asks the backend to classify URL at the given analysis level.
	CheckURL(ctx context.Context, URL string, level domain.AnalysisLevel) (*domain.ClassificationResult, error)
	// CreateIncident posts an incident. The response body is ignored.
	CreateIncident(ctx context.Context, incident domain.Incident) error
}

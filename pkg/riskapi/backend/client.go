// Package backend provides a riskapi.Client implementation backed by the
// platform's REST API (POST /check-url and POST /incidents/create).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"urlguard/pkg/domain"
	"urlguard/pkg/riskapi"
	"urlguard/pkg/serrors"
)

const (
	checkURLPath       = "/check-url"
	createIncidentPath = "/incidents/create"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Client talks to the risk backend. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to the backend
	baseURL    *url.URL     // baseURL is the API root, e.g. http://localhost:3000/api
}

// New constructs a Client for the API rooted at baseURL.
func New(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("could not parse backend base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend base URL must be absolute: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{httpClient: httpClient, baseURL: u}, nil
}

// Origin returns scheme://host of the backend. Requests to it must never be
// classified, or the guard would intercept its own calls.
func (c *Client) Origin() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// transportError maps a failed round trip to a semantic error.
func transportError(err error, op string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return serrors.Wrap(serrors.ErrTimeout, err, "%s timed out", op)
	}

	return serrors.Wrap(serrors.ErrUnavailable, err, "could not reach backend for %s", op)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(err, path)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, serrors.With(serrors.ErrRateLimited, "%s was rate limited", path)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, serrors.With(serrors.ErrBadRequest,
			"%s was rejected with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serrors.With(serrors.ErrUpstream,
			"%s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return b, nil
}

// CheckURL submits URL for classification. 4xx statuses other than 429 are
// reported as serrors.ErrBadRequest; other non-2xx statuses, undecodable
// bodies and out-of-contract fields as serrors.ErrUpstream.
func (c *Client) CheckURL(
	ctx context.Context,
	URL string,
	level domain.AnalysisLevel) (*domain.ClassificationResult, error) {
	type checkReq struct {
		URL           string               `json:"url"`
		AnalysisLevel domain.AnalysisLevel `json:"analysisLevel"`
	}

	b, err := c.post(ctx, checkURLPath, checkReq{URL: URL, AnalysisLevel: level})
	if err != nil {
		return nil, err
	}

	var res domain.ClassificationResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, serrors.Wrap(serrors.ErrUpstream, err, "could not decode classification")
	}
	if err := ValidateResult(&res); err != nil {
		return nil, err
	}
	if res.AnalysisLevel == "" {
		res.AnalysisLevel = level
	}
	if res.BasicChecks == nil {
		res.BasicChecks = []domain.BasicCheck{}
	}

	return &res, nil
}

// ValidateResult checks the fields the guard makes decisions on.
func ValidateResult(res *domain.ClassificationResult) error {
	if !res.RiskLevel.Valid() {
		return serrors.With(serrors.ErrUpstream, "invalid riskLevel %q", res.RiskLevel)
	}
	if res.RiskScore < 0 || res.RiskScore > 100 {
		return serrors.With(serrors.ErrUpstream, "riskScore %d out of range", res.RiskScore)
	}

	return nil
}

// CreateIncident posts incident to the backend. The response content is ignored.
func (c *Client) CreateIncident(ctx context.Context, incident domain.Incident) error {
	_, err := c.post(ctx, createIncidentPath, incident)

	return err
}

// Ensure Client conforms to the riskapi.Client interface at compile time.
var _ riskapi.Client = (*Client)(nil)

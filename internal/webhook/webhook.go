// Package webhook forwards search requests to an external workflow instead
// of running the local pipeline.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/settings"
	"github.com/FranksOps/leadscout/internal/source"
	"github.com/FranksOps/leadscout/pkg/httpclient"
)

// ErrStatus is returned when the webhook answers with a non-2xx status.
var ErrStatus = errors.New("webhook: unexpected status")

// ErrInvalidResponse is returned when the webhook body is not JSON.
var ErrInvalidResponse = errors.New("webhook: response is not json")

// Payload is the body posted to a webhook.
type Payload struct {
	Action         string    `json:"action"`
	Industry       string    `json:"industry"`
	BusinessSize   string    `json:"businessSize"`
	Location       string    `json:"location"`
	ProblemSignals []string  `json:"problemSignals"`
	CustomSignals  string    `json:"customSignals"`
	Sources        []string  `json:"sources"`
	Timestamp      time.Time `json:"timestamp"`
}

// Defaults applied to a forwarded payload when the request leaves them empty.
const defaultBusinessSize = "any"

var defaultSources = []string{source.Reddit}

// NewPayload flattens req for posting.
func NewPayload(req pipeline.Request, now time.Time) Payload {
	p := req.Params
	size := strings.TrimSpace(p.BusinessSize)
	if size == "" {
		size = defaultBusinessSize
	}
	sources := p.Sources
	if len(sources) == 0 {
		sources = append([]string(nil), defaultSources...)
	}
	return Payload{
		Action:         req.Action,
		Industry:       p.Industry,
		BusinessSize:   size,
		Location:       p.Location,
		ProblemSignals: nonNil(p.ProblemSignals),
		CustomSignals:  p.CustomSignals,
		Sources:        sources,
		Timestamp:      now.UTC(),
	}
}

// Resolver finds the webhook URL for an action: the settings store first,
// then the configured fallbacks.
type Resolver struct {
	Settings settings.Store
	Fallback map[string]string
}

// URL returns the webhook for action, or "" when none is configured.
func (r Resolver) URL(ctx context.Context, action string) string {
	if u := settings.Lookup(ctx, r.Settings, settings.WebhookKey(action)); u != "" {
		return u
	}
	return strings.TrimSpace(r.Fallback[strings.ToLower(strings.TrimSpace(action))])
}

// Forwarder posts payloads and relays the JSON answer.
type Forwarder struct {
	client *httpclient.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewForwarder(client *httpclient.Client, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{client: client, logger: logger, now: time.Now}
}

// Forward posts req to url and returns the response body unchanged.
func (f *Forwarder) Forward(ctx context.Context, url string, req pipeline.Request) (json.RawMessage, error) {
	body, err := json.Marshal(NewPayload(req, f.now()))
	if err != nil {
		return nil, fmt.Errorf("webhook: encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webhook: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	data, err := f.client.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	f.logger.Info("webhook answered", "action", req.Action, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(data), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

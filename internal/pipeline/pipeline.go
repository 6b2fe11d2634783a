// Package pipeline runs one lead search: it builds the keyword query, fans
// out to the selected sources, and formats and ranks what comes back.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/analyzer"
	"github.com/FranksOps/leadscout/internal/keywords"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/source"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Recognised actions. Any non-empty action runs the same pipeline.
const (
	ActionFind    = "find"
	ActionScrape  = "scrape"
	ActionAnalyze = "analyze"
)

// ErrMissingAction is returned when a request has no action.
var ErrMissingAction = errors.New("pipeline: action is required")

// Params are the search inputs supplied by the caller.
type Params struct {
	Industry string `json:"industry,omitempty"`
	// BusinessSize is informational and not filtered on.
	BusinessSize   string   `json:"businessSize,omitempty"`
	Location       string   `json:"location,omitempty"`
	ProblemSignals []string `json:"problemSignals,omitempty"`
	CustomSignals  string   `json:"customSignals,omitempty"`
	Sources        []string `json:"sources,omitempty"`
}

// Request is one search call.
type Request struct {
	Action string `json:"action"`
	Params Params `json:"params"`
	// Credential overrides the configured Apollo API key for this run.
	Credential string `json:"-"`
}

// Response is the result of a run.
type Response struct {
	Leads []lead.Formatted `json:"leads"`
	Meta  lead.Meta        `json:"meta"`
}

// Config wires the adapters a Pipeline may call.
type Config struct {
	// Adapters are keyed by their ID. Requested sources without a
	// registered adapter are skipped.
	Adapters []source.Adapter
	// Placeholder replaces the apollo adapter when Credential is empty.
	Placeholder source.Adapter
	// Credential is the Apollo API key.
	Credential string
}

// Pipeline is safe for concurrent use; runs share nothing but the adapters,
// which hold no per-run state.
type Pipeline struct {
	adapters    map[string]source.Adapter
	placeholder source.Adapter
	credential  string
	logger      *slog.Logger
	now         func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		adapters:    make(map[string]source.Adapter, len(cfg.Adapters)),
		placeholder: cfg.Placeholder,
		credential:  cfg.Credential,
		logger:      logger,
		now:         time.Now,
	}
	if p.placeholder == nil {
		p.placeholder = source.NewPlaceholder("")
	}
	for _, a := range cfg.Adapters {
		p.adapters[a.ID()] = a
	}
	return p
}

// Run executes req. It fails only for a missing action; source failures
// shrink the result and the meta.sources list instead.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, ErrMissingAction
	}
	runID := uuid.NewString()
	log := p.logger.With("run", runID, "action", action)
	switch action {
	case ActionFind, ActionScrape, ActionAnalyze:
	default:
		log.Info("unrecognised action, running direct pipeline")
	}

	cred := p.credential
	if c := strings.TrimSpace(req.Credential); c != "" {
		cred = c
	}
	prm := req.Params
	q := source.Query{
		Keywords:   keywords.Build(prm.ProblemSignals, prm.CustomSignals, prm.Industry),
		Industry:   prm.Industry,
		Location:   prm.Location,
		Credential: cred,
	}

	plan := p.plan(prm.Sources, cred != "", log)
	log.Info("search started", "sources", ids(plan), "query", q.Keywords)

	outcomes := make([]source.Outcome, len(plan))
	var g errgroup.Group
	for i, a := range plan {
		g.Go(func() error {
			outcomes[i] = source.Invoke(ctx, a, q, log)
			return nil
		})
	}
	_ = g.Wait()

	var raws []lead.Raw
	var labels []string
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		raws = append(raws, o.Leads...)
		labels = append(labels, o.Label)
	}

	matcher := analyzer.NewMatcher(phrases(prm))
	leads := lead.FormatAll(raws, lead.Context{
		Industry: prm.Industry,
		Location: prm.Location,
		Matcher:  matcher.Match,
	})
	lead.SortByRichness(leads)

	meta := lead.ComputeMeta(leads, labels, p.now())
	metrics.RecordSearch("direct")
	log.Info("search finished", "leads", meta.Total, "with_email", meta.WithEmail, "with_phone", meta.WithPhone, "sources", labels)
	return &Response{Leads: leads, Meta: meta}, nil
}

// plan resolves requested source IDs to adapters, in request order.
func (p *Pipeline) plan(requested []string, haveCredential bool, log *slog.Logger) []source.Adapter {
	var plan []source.Adapter
	seen := make(map[string]bool)
	for _, raw := range requested {
		id, ok := source.Normalize(raw)
		if !ok {
			log.Warn("unknown source skipped", "source", raw)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		if id == source.Apollo && !haveCredential {
			plan = append(plan, p.placeholder)
			continue
		}
		a, ok := p.adapters[id]
		if !ok {
			log.Warn("source not configured", "source", id)
			continue
		}
		plan = append(plan, a)
	}

	if len(plan) == 0 {
		if a, ok := p.adapters[source.Reddit]; ok {
			plan = append(plan, a)
		}
	}
	return plan
}

func phrases(prm Params) []string {
	out := keywords.Selected(prm.ProblemSignals)
	if c := strings.TrimSpace(prm.CustomSignals); c != "" {
		out = append(out, c)
	}
	return out
}

func ids(plan []source.Adapter) []string {
	out := make([]string, len(plan))
	for i, a := range plan {
		out[i] = a.ID()
	}
	return out
}

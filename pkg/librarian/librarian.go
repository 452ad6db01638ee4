// Package librarian ties the resolution pipeline together. A Librarian holds
// the active skill registry snapshot and resolves free-text requests into a
// decision and, for automatic selections, an execution plan.
package librarian

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jingkaihe/librarian/pkg/intent"
	"github.com/jingkaihe/librarian/pkg/logger"
	"github.com/jingkaihe/librarian/pkg/match"
	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/score"
	"github.com/jingkaihe/librarian/pkg/skills"
	"github.com/jingkaihe/librarian/pkg/telemetry"
)

// ErrNoRegistry is returned when resolving before any registry was loaded
var ErrNoRegistry = errors.New("no skill registry loaded")

var tracer = telemetry.Tracer("librarian")

// Result is the outcome of one resolution request. Plan is set only for
// automatic decisions whose selection resolved without a cycle. Equal queries
// against the same registry yield equal results; the per-request id appears
// only in logs and spans.
type Result struct {
	RegistryID string              `json:"registry_id"`
	Query      string              `json:"query"`
	Tokens     []string            `json:"tokens"`
	Decision   score.Decision      `json:"decision"`
	Candidates []score.ScoredSkill `json:"candidates"`
	Matches    []match.Candidate   `json:"matches,omitempty"`
	Plan       *plan.ExecutionPlan `json:"plan,omitempty"`
}

// Librarian resolves requests against the active registry. Resolve may be
// called concurrently with itself and with Reload; each call works on the
// snapshot that was active when it started.
type Librarian struct {
	registry atomic.Pointer[skills.Registry]

	normalizer *intent.Normalizer
	matcher    *match.Matcher
	policy     score.Policy
}

// Option configures a Librarian
type Option func(*Librarian)

// WithRegistry sets the initial registry snapshot
func WithRegistry(reg *skills.Registry) Option {
	return func(l *Librarian) {
		l.registry.Store(reg)
	}
}

// WithNormalizer replaces the default normalizer
func WithNormalizer(n *intent.Normalizer) Option {
	return func(l *Librarian) {
		l.normalizer = n
	}
}

// WithMatcher replaces the default matcher
func WithMatcher(m *match.Matcher) Option {
	return func(l *Librarian) {
		l.matcher = m
	}
}

// WithPolicy replaces the default decision policy
func WithPolicy(p score.Policy) Option {
	return func(l *Librarian) {
		l.policy = p
	}
}

// New creates a Librarian. Without WithRegistry, Resolve fails with
// ErrNoRegistry until Reload succeeds.
func New(opts ...Option) *Librarian {
	l := &Librarian{
		normalizer: intent.NewNormalizer(),
		matcher:    match.New(),
		policy:     score.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFromConfig creates a Librarian whose normalizer, matcher and policy follow
// cfg. The registry still has to be loaded.
func NewFromConfig(cfg Config) (*Librarian, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(
		WithNormalizer(intent.NewNormalizer(intent.WithAbbreviations(cfg.Abbreviations))),
		WithMatcher(match.New(match.WithMinFuzzyLength(cfg.Policy.MinFuzzyLength))),
		WithPolicy(cfg.Policy.Policy),
	), nil
}

// Registry returns the active snapshot, or nil if none was loaded
func (l *Librarian) Registry() *skills.Registry {
	return l.registry.Load()
}

// Policy returns the decision policy in use
func (l *Librarian) Policy() score.Policy {
	return l.policy
}

// Reload validates records into a new registry and publishes it. On a
// validation error the previous registry stays active.
func (l *Librarian) Reload(ctx context.Context, records []skills.Record) (*skills.Registry, error) {
	ctx, span := tracer.Start(ctx, "librarian.reload")
	defer span.End()

	log := logger.G(ctx).WithField("records", len(records))

	reg, err := skills.NewRegistry(records)
	if err != nil {
		telemetry.RecordError(ctx, err)
		log.WithError(err).Warn("skill registry rejected, keeping previous snapshot")
		return nil, err
	}

	prev := l.registry.Swap(reg)
	if prev != nil {
		log = log.WithField("previous_registry_id", prev.ID())
	}
	log.WithField("registry_id", reg.ID()).Info("skill registry loaded")
	span.SetAttributes(
		attribute.String("registry.id", reg.ID()),
		attribute.Int("registry.skills", reg.Len()),
	)
	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// Load reads records from src and reloads with them
func (l *Librarian) Load(ctx context.Context, src skills.Source) (*skills.Registry, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load skill catalog")
	}
	return l.Reload(ctx, records)
}

// Resolve runs the full pipeline for query. The error is an
// *intent.InvalidInputError for an empty query, or a *plan.CycleError when an
// automatic selection reaches a dependency cycle; in the latter case the
// result still carries the decision and candidates but no plan.
func (l *Librarian) Resolve(ctx context.Context, query string) (*Result, error) {
	reg := l.registry.Load()
	if reg == nil {
		return nil, ErrNoRegistry
	}

	ctx, span := tracer.Start(ctx, "librarian.resolve")
	defer span.End()

	requestID := uuid.New().String()
	result := &Result{
		RegistryID: reg.ID(),
		Query:      query,
	}
	ctx = logger.WithFields(ctx, logrus.Fields{
		"request_id":  requestID,
		"registry_id": result.RegistryID,
	})
	log := logger.G(ctx)

	q, err := l.normalizer.Normalize(query)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	result.Tokens = q.Tokens

	result.Matches = l.matcher.Match(q, reg)
	result.Candidates = score.Score(result.Matches, reg)
	result.Decision = l.policy.Decide(result.Candidates)

	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("registry.id", result.RegistryID),
		attribute.Int("query.tokens", len(q.Tokens)),
		attribute.Int("candidates", len(result.Candidates)),
		attribute.String("decision", result.Decision.Kind.String()),
		attribute.StringSlice("skills", result.Decision.IDs()),
	)

	if result.Decision.Kind == score.Auto {
		p, err := plan.Resolve(result.Decision.IDs(), reg)
		if err != nil {
			telemetry.RecordError(ctx, err)
			log.WithError(err).Warn("selected skills cannot be planned")
			return result, err
		}
		result.Plan = p
	}

	log.WithFields(logrus.Fields{
		"decision": result.Decision.Kind.String(),
		"skills":   result.Decision.IDs(),
		"tokens":   len(q.Tokens),
	}).Debug("resolved request")
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// Plan orders an explicit selection, for callers that confirmed a choice
// offered by a Confirm decision.
func (l *Librarian) Plan(ctx context.Context, ids []string) (*plan.ExecutionPlan, error) {
	reg := l.registry.Load()
	if reg == nil {
		return nil, ErrNoRegistry
	}

	var p *plan.ExecutionPlan
	err := telemetry.WithSpan(ctx, "librarian.plan", func(ctx context.Context) error {
		var err error
		p, err = plan.Resolve(ids, reg)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skills", ids).Debug("plan failed")
		}
		return err
	}, attribute.StringSlice("skills", ids), attribute.String("registry.id", reg.ID()))
	return p, err
}

package urlguard

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/serroba/linkguard/internal/urlguard")

// Guard combines the static policy and the reputation vendor into one Decision.
type Guard struct {
	cfg     Config
	static  *StaticEvaluator
	lookup  Lookup
	metrics *Metrics
	logger  *zap.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

func WithMetrics(m *Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard builds a Guard. lookup is only consulted when cfg has a reputation key;
// a nil lookup means NoopLookup.
func NewGuard(cfg Config, lookup Lookup, logger *zap.Logger, opts ...GuardOption) *Guard {
	if lookup == nil {
		lookup = NoopLookup{}
	}

	if cfg.ReputationTimeout <= 0 {
		cfg.ReputationTimeout = DefaultReputationTimeout
	}

	g := &Guard{
		cfg:    cfg,
		static: NewStaticEvaluator(cfg),
		lookup: lookup,
		logger: logger,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Check evaluates raw and returns the safety decision. Only normalization
// errors are returned; vendor failures degrade to review.
func (g *Guard) Check(ctx context.Context, raw string) (Decision, error) {
	if g.cfg.Mode == ModeOff {
		return g.decide(Decision{Verdict: VerdictAllow, Reason: ReasonPolicyOff}), nil
	}

	n, err := Normalize(raw)
	if err != nil {
		return Decision{}, err
	}

	if d := g.static.Evaluate(n.HostASCII, n.HostUnicode); d != nil {
		switch d.Verdict {
		case VerdictBlock:
			if g.cfg.Mode != ModeReviewOnly {
				return g.decide(*d), nil
			}

			g.logger.Warn("static block suppressed in review-only mode",
				zap.String("host", n.HostASCII),
				zap.String("reason", d.Reason),
			)
		case VerdictReview:
			return g.decide(*d), nil
		}
	}

	rep := Reputation{Verdict: VerdictUnknown, Vendor: VendorNone}
	if g.cfg.ReputationEnabled() {
		rep = g.reputation(ctx, n)
	}

	switch rep.Verdict {
	case VerdictBlock:
		if g.cfg.Mode != ModeReviewOnly {
			return g.decide(Decision{Verdict: VerdictBlock, Reason: ReasonThreatIntel, Vendor: rep.Vendor}), nil
		}

		g.logger.Warn("reputation block suppressed in review-only mode",
			zap.String("host", n.HostASCII),
			zap.String("vendor", rep.Vendor),
		)
	case VerdictReview:
		return g.decide(Decision{Verdict: VerdictReview, Reason: ReasonThreatIntel, Vendor: rep.Vendor}), nil
	}

	return g.decide(Decision{Verdict: VerdictAllow, Reason: ReasonClean, Vendor: rep.Vendor}), nil
}

// reputation runs one bounded lookup. Timeouts and failures become review.
func (g *Guard) reputation(ctx context.Context, n *NormalizedURL) Reputation {
	ctx, span := tracer.Start(ctx, "reputation.lookup",
		trace.WithAttributes(attribute.String("url.host", n.HostASCII)),
	)
	defer span.End()

	lookupCtx, cancel := context.WithTimeout(ctx, g.cfg.ReputationTimeout)
	defer cancel()

	start := time.Now()
	rep, err := g.lookup.Lookup(lookupCtx, n.String())
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("reputation lookup timed out",
				zap.String("host", n.HostASCII),
				zap.Duration("budget", g.cfg.ReputationTimeout),
				zap.Duration("elapsed", elapsed),
			)
			g.metrics.observeLookup(OutcomeTimeout, elapsed)
		} else {
			g.logger.Error("reputation lookup failed",
				zap.String("host", n.HostASCII),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			g.metrics.observeLookup(OutcomeError, elapsed)
		}

		return Reputation{Verdict: VerdictReview, Vendor: VendorTimeout}
	}

	span.SetAttributes(
		attribute.String("reputation.verdict", string(rep.Verdict)),
		attribute.String("reputation.vendor", rep.Vendor),
	)
	g.metrics.observeLookup(string(rep.Verdict), elapsed)

	return rep
}

func (g *Guard) decide(d Decision) Decision {
	g.metrics.observeDecision(d)

	return d
}

package urlguard_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/linkguard/internal/urlguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errVendor = errors.New("vendor down")

// fakeLookup returns a fixed reputation and counts calls.
type fakeLookup struct {
	rep   urlguard.Reputation
	err   error
	delay time.Duration
	calls atomic.Int32
	seen  atomic.Value
}

func (f *fakeLookup) Lookup(ctx context.Context, rawURL string) (urlguard.Reputation, error) {
	f.calls.Add(1)
	f.seen.Store(rawURL)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return urlguard.Reputation{}, ctx.Err()
		}
	}

	return f.rep, f.err
}

func allowing() *fakeLookup {
	return &fakeLookup{rep: urlguard.Reputation{Verdict: urlguard.VerdictAllow, Vendor: urlguard.VendorSafeBrowsing}}
}

func blocking() *fakeLookup {
	return &fakeLookup{rep: urlguard.Reputation{Verdict: urlguard.VerdictBlock, Vendor: urlguard.VendorSafeBrowsing}}
}

func testConfig(mode urlguard.Mode) urlguard.Config {
	cfg := urlguard.DefaultConfig()
	cfg.Mode = mode
	cfg.Allowlist = []string{"trusted.example"}
	cfg.Denylist = []string{"evil.example", "evilsite.test"}
	cfg.ReputationKey = "test-key"
	cfg.ReputationTimeout = 50 * time.Millisecond

	return cfg
}

func TestGuardCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("denylisted host is blocked without a lookup", func(t *testing.T) {
		lookup := allowing()
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.NewNop())

		for _, raw := range []string{"evil.example", "https://EVIL.example/path?x=1", "http://evil.example:8080"} {
			d, err := g.Check(ctx, raw)

			require.NoError(t, err)
			assert.Equal(t, urlguard.Decision{Verdict: urlguard.VerdictBlock, Reason: urlguard.ReasonDenylist}, d)
		}

		assert.Zero(t, lookup.calls.Load())
	})

	t.Run("zero-width characters inside a denylisted host still block", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), allowing(), zap.NewNop())

		d, err := g.Check(ctx, "evil\u200bsite.test")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictBlock, d.Verdict)
		assert.Equal(t, urlguard.ReasonDenylist, d.Reason)
	})

	t.Run("allowlisted host still consults reputation", func(t *testing.T) {
		lookup := blocking()
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.NewNop())

		d, err := g.Check(ctx, "https://trusted.example/page")

		require.NoError(t, err)
		assert.Equal(t, int32(1), lookup.calls.Load())
		assert.Equal(t, urlguard.VerdictBlock, d.Verdict)
		assert.Equal(t, urlguard.ReasonThreatIntel, d.Reason)
		assert.Equal(t, urlguard.VendorSafeBrowsing, d.Vendor)
	})

	t.Run("allowlisted host with clean reputation is allowed", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), allowing(), zap.NewNop())

		d, err := g.Check(ctx, "trusted.example")

		require.NoError(t, err)
		assert.Equal(t, urlguard.Decision{
			Verdict: urlguard.VerdictAllow,
			Reason:  urlguard.ReasonClean,
			Vendor:  urlguard.VendorSafeBrowsing,
		}, d)
	})

	t.Run("risky suffix goes to review", func(t *testing.T) {
		lookup := allowing()
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.NewNop())

		d, err := g.Check(ctx, "example.zip")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictReview, d.Verdict)
		assert.Equal(t, urlguard.ReasonRiskyTLD, d.Reason)
		assert.Zero(t, lookup.calls.Load())
	})

	t.Run("homograph host is blocked", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), allowing(), zap.NewNop())

		d, err := g.Check(ctx, "аdmin.example.com")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictBlock, d.Verdict)
		assert.Equal(t, urlguard.ReasonMixedScripts, d.Reason)
	})

	t.Run("mode off allows everything without normalizing", func(t *testing.T) {
		lookup := blocking()
		g := urlguard.NewGuard(testConfig(urlguard.ModeOff), lookup, zap.NewNop())

		for _, raw := range []string{"evil.example", "example.zip", "аdmin.example.com", ""} {
			d, err := g.Check(ctx, raw)

			require.NoError(t, err)
			assert.Equal(t, urlguard.Decision{Verdict: urlguard.VerdictAllow, Reason: urlguard.ReasonPolicyOff}, d)
		}

		assert.Zero(t, lookup.calls.Load())
	})

	t.Run("no reputation key skips the lookup", func(t *testing.T) {
		cfg := testConfig(urlguard.ModeEnforce)
		cfg.ReputationKey = ""
		lookup := blocking()
		g := urlguard.NewGuard(cfg, lookup, zap.NewNop())

		d, err := g.Check(ctx, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, urlguard.Decision{
			Verdict: urlguard.VerdictAllow,
			Reason:  urlguard.ReasonClean,
			Vendor:  urlguard.VendorNone,
		}, d)
		assert.Zero(t, lookup.calls.Load())
	})

	t.Run("lookup receives the normalized url", func(t *testing.T) {
		lookup := allowing()
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.NewNop())

		_, err := g.Check(ctx, "  Bücher.de/x ")

		require.NoError(t, err)
		assert.Equal(t, "https://xn--bcher-kva.de/x", lookup.seen.Load())
	})

	t.Run("normalization errors propagate", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), allowing(), zap.NewNop())

		_, err := g.Check(ctx, "   ")
		assert.ErrorIs(t, err, urlguard.ErrEmptyInput)

		_, err = g.Check(ctx, "https://bad host")
		assert.ErrorIs(t, err, urlguard.ErrMalformedURL)
	})
}

func TestGuardReviewOnlyMode(t *testing.T) {
	ctx := context.Background()

	t.Run("static block falls through to reputation", func(t *testing.T) {
		lookup := allowing()
		g := urlguard.NewGuard(testConfig(urlguard.ModeReviewOnly), lookup, zap.NewNop())

		d, err := g.Check(ctx, "evil.example")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictAllow, d.Verdict)
		assert.Equal(t, urlguard.ReasonClean, d.Reason)
		assert.Equal(t, int32(1), lookup.calls.Load())
	})

	t.Run("reputation block is not enforced", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeReviewOnly), blocking(), zap.NewNop())

		d, err := g.Check(ctx, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictAllow, d.Verdict)
	})

	t.Run("review signals still apply", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeReviewOnly), allowing(), zap.NewNop())

		d, err := g.Check(ctx, "https://secure-login.example.net")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictReview, d.Verdict)
		assert.Equal(t, urlguard.ReasonSuspiciousLabel, d.Reason)
	})
}

func TestGuardReputationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout maps to review and is logged as a timeout", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		reg := prometheus.NewRegistry()
		lookup := &fakeLookup{
			rep:   urlguard.Reputation{Verdict: urlguard.VerdictAllow, Vendor: urlguard.VendorSafeBrowsing},
			delay: time.Second,
		}
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.New(core),
			urlguard.WithMetrics(urlguard.NewMetrics(reg)))

		start := time.Now()
		d, err := g.Check(ctx, "https://slow.example")

		require.NoError(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Equal(t, urlguard.Decision{
			Verdict: urlguard.VerdictReview,
			Reason:  urlguard.ReasonThreatIntel,
			Vendor:  urlguard.VendorTimeout,
		}, d)
		assert.Equal(t, 1, logs.FilterMessage("reputation lookup timed out").Len())
		assert.Zero(t, logs.FilterMessage("reputation lookup failed").Len())
	})

	t.Run("failure maps to review and is logged as a failure", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		lookup := &fakeLookup{err: errVendor}
		g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), lookup, zap.New(core))

		d, err := g.Check(ctx, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictReview, d.Verdict)
		assert.Equal(t, urlguard.VendorTimeout, d.Vendor)
		assert.Equal(t, 1, logs.FilterMessage("reputation lookup failed").Len())
		assert.Zero(t, logs.FilterMessage("reputation lookup timed out").Len())
	})

	t.Run("failure is reviewed even in review-only mode", func(t *testing.T) {
		g := urlguard.NewGuard(testConfig(urlguard.ModeReviewOnly), &fakeLookup{err: errVendor}, zap.NewNop())

		d, err := g.Check(ctx, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, urlguard.VerdictReview, d.Verdict)
	})
}

func TestGuardMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := urlguard.NewMetrics(reg)
	g := urlguard.NewGuard(testConfig(urlguard.ModeEnforce), allowing(), zap.NewNop(), urlguard.WithMetrics(metrics))

	_, err := g.Check(context.Background(), "evil.example")
	require.NoError(t, err)
	_, err = g.Check(context.Background(), "https://example.com")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "linkguard_guard_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "linkguard_guard_reputation_lookup_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

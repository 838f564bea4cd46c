package urlguard_test

import (
	"testing"

	"github.com/serroba/linkguard/internal/urlguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluate(t *testing.T, e *urlguard.StaticEvaluator, raw string) *urlguard.Decision {
	t.Helper()

	n, err := urlguard.Normalize(raw)
	require.NoError(t, err)

	return e.Evaluate(n.HostASCII, n.HostUnicode)
}

func TestStaticEvaluator(t *testing.T) {
	cfg := urlguard.DefaultConfig()
	cfg.Allowlist = []string{"trusted.example", "paypal.com"}
	cfg.Denylist = []string{"evil.example", "xn--bcher-kva.de"}
	e := urlguard.NewStaticEvaluator(cfg)

	tests := []struct {
		name    string
		raw     string
		verdict urlguard.Verdict
		reason  string
	}{
		{"allowlist", "https://trusted.example/x", urlguard.VerdictAllow, urlguard.ReasonAllowlist},
		{"allowlist beats keyword", "https://paypal.com", urlguard.VerdictAllow, urlguard.ReasonAllowlist},
		{"denylist", "https://EVIL.example/", urlguard.VerdictBlock, urlguard.ReasonDenylist},
		{"denylist matches punycode form", "https://bücher.de", urlguard.VerdictBlock, urlguard.ReasonDenylist},
		{"denylist with root dot", "https://evil.example./x", urlguard.VerdictBlock, urlguard.ReasonDenylist},
		{"risky zip", "example.zip", urlguard.VerdictReview, urlguard.ReasonRiskyTLD},
		{"risky zip with root dot", "example.zip.", urlguard.VerdictReview, urlguard.ReasonRiskyTLD},
		{"risky mov", "https://movie.mov/trailer", urlguard.VerdictReview, urlguard.ReasonRiskyTLD},
		{"cyrillic homograph", "https://аdmin.example.com", urlguard.VerdictBlock, urlguard.ReasonMixedScripts},
		{"greek homograph", "https://gοogle.com", urlguard.VerdictBlock, urlguard.ReasonMixedScripts},
		{"suspicious first label", "https://secure-login.example.net", urlguard.VerdictReview, urlguard.ReasonSuspiciousLabel},
		{"keyword only checked in first label", "https://example.login.net", "", ""},
		{"raw ipv4", "http://192.168.0.1/admin", urlguard.VerdictReview, urlguard.ReasonRawIPHost},
		{"no signal", "https://example.com", "", ""},
		{"pure cyrillic host", "https://пример.рф", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := evaluate(t, e, tt.raw)

			if tt.verdict == "" {
				assert.Nil(t, d)

				return
			}

			require.NotNil(t, d)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestStaticEvaluatorDenylistSurvivesZeroWidthObfuscation(t *testing.T) {
	cfg := urlguard.DefaultConfig()
	cfg.Denylist = []string{"evil.example"}
	e := urlguard.NewStaticEvaluator(cfg)

	d := evaluate(t, e, "https://ev\u200bil.exa\u200dmple/")

	require.NotNil(t, d)
	assert.Equal(t, urlguard.VerdictBlock, d.Verdict)
	assert.Equal(t, urlguard.ReasonDenylist, d.Reason)
}

func TestStaticEvaluatorCustomLists(t *testing.T) {
	cfg := urlguard.Config{
		RiskySuffixes:      urlguard.ParseList(" .XYZ , ,.top"),
		SuspiciousKeywords: urlguard.ParseList("bank"),
	}
	e := urlguard.NewStaticEvaluator(cfg)

	d := evaluate(t, e, "https://cheap.top")
	require.NotNil(t, d)
	assert.Equal(t, urlguard.ReasonRiskyTLD, d.Reason)

	d = evaluate(t, e, "https://mybank-online.com")
	require.NotNil(t, d)
	assert.Equal(t, urlguard.ReasonSuspiciousLabel, d.Reason)

	assert.Nil(t, evaluate(t, e, "https://example.zip"))
	assert.Nil(t, evaluate(t, e, "https://login.example.com"))
}

func TestStaticEvaluatorUnicodeListEntries(t *testing.T) {
	cfg := urlguard.Config{
		Allowlist: urlguard.ParseList("Bücher.de"),
		Denylist:  urlguard.ParseList("bösewicht.example."),
	}
	e := urlguard.NewStaticEvaluator(cfg)

	d := evaluate(t, e, "https://xn--bcher-kva.de/")
	require.NotNil(t, d)
	assert.Equal(t, urlguard.ReasonAllowlist, d.Reason)

	d = evaluate(t, e, "https://bösewicht.example")
	require.NotNil(t, d)
	assert.Equal(t, urlguard.ReasonDenylist, d.Reason)
}

func TestParseMode(t *testing.T) {
	tests := map[string]urlguard.Mode{
		"":            urlguard.ModeEnforce,
		"enforce":     urlguard.ModeEnforce,
		" OFF ":       urlguard.ModeOff,
		"review-only": urlguard.ModeReviewOnly,
	}

	for in, want := range tests {
		got, err := urlguard.ParseMode(in)

		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := urlguard.ParseMode("strict")
	assert.ErrorIs(t, err, urlguard.ErrUnknownMode)
}

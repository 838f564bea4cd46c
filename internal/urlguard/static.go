package urlguard

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

var ipv4Host = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// StaticEvaluator applies configuration-driven host rules without any I/O.
type StaticEvaluator struct {
	allow         map[string]struct{}
	deny          map[string]struct{}
	riskySuffixes []string
	keywords      []string
}

// NewStaticEvaluator builds an evaluator from cfg. Entries are compared lowercase.
func NewStaticEvaluator(cfg Config) *StaticEvaluator {
	return &StaticEvaluator{
		allow:         toSet(cfg.Allowlist),
		deny:          toSet(cfg.Denylist),
		riskySuffixes: lowerAll(cfg.RiskySuffixes),
		keywords:      lowerAll(cfg.SuspiciousKeywords),
	}
}

// Evaluate returns the first matching rule's decision, or nil when no rule matches.
func (e *StaticEvaluator) Evaluate(hostASCII, hostUnicode string) *Decision {
	if _, ok := e.allow[hostASCII]; ok {
		return &Decision{Verdict: VerdictAllow, Reason: ReasonAllowlist}
	}

	if _, ok := e.deny[hostASCII]; ok {
		return &Decision{Verdict: VerdictBlock, Reason: ReasonDenylist}
	}

	for _, suffix := range e.riskySuffixes {
		if strings.HasSuffix(hostASCII, suffix) {
			return &Decision{Verdict: VerdictReview, Reason: ReasonRiskyTLD}
		}
	}

	if hasMixedScripts(hostUnicode) {
		return &Decision{Verdict: VerdictBlock, Reason: ReasonMixedScripts}
	}

	label, _, _ := strings.Cut(strings.ToLower(hostUnicode), ".")
	for _, kw := range e.keywords {
		if strings.Contains(label, kw) {
			return &Decision{Verdict: VerdictReview, Reason: ReasonSuspiciousLabel}
		}
	}

	if ipv4Host.MatchString(hostASCII) {
		return &Decision{Verdict: VerdictReview, Reason: ReasonRawIPHost}
	}

	return nil
}

// hasMixedScripts reports whether host combines Latin letters with Cyrillic or Greek ones.
func hasMixedScripts(host string) bool {
	var latin, confusable bool

	for _, r := range host {
		switch {
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r), unicode.Is(unicode.Greek, r):
			confusable = true
		}

		if latin && confusable {
			return true
		}
	}

	return false
}

// toSet keys hosts the way Normalize produces HostASCII.
func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[canonicalHost(item)] = struct{}{}
	}

	return set
}

func canonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")

	ascii, err := idna.Punycode.ToASCII(host)
	if err != nil {
		return host
	}

	return strings.ToLower(ascii)
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, strings.ToLower(item))
		}
	}

	return out
}

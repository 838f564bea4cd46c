package urlguard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode controls how much of the policy is enforced.
type Mode string

const (
	ModeOff        Mode = "off"
	ModeEnforce    Mode = "enforce"
	ModeReviewOnly Mode = "review-only"
)

// DefaultReputationTimeout is the budget for a single reputation lookup.
const DefaultReputationTimeout = 2500 * time.Millisecond

var ErrUnknownMode = errors.New("unknown policy mode")

// DefaultRiskySuffixes are host suffixes that send a URL to review.
func DefaultRiskySuffixes() []string {
	return []string{".zip", ".mov"}
}

// DefaultSuspiciousKeywords are first-label substrings that send a URL to review.
func DefaultSuspiciousKeywords() []string {
	return []string{"login", "secure", "account", "verify", "wallet", "update", "gpo", "pay"}
}

// Config is the policy configuration. It is built once at startup and never mutated.
type Config struct {
	Mode               Mode
	Allowlist          []string
	Denylist           []string
	RiskySuffixes      []string
	SuspiciousKeywords []string
	ReputationTimeout  time.Duration
	ReputationKey      string
}

// DefaultConfig returns an enforcing configuration with the built-in lists and no reputation key.
func DefaultConfig() Config {
	return Config{
		Mode:               ModeEnforce,
		RiskySuffixes:      DefaultRiskySuffixes(),
		SuspiciousKeywords: DefaultSuspiciousKeywords(),
		ReputationTimeout:  DefaultReputationTimeout,
	}
}

// ReputationEnabled reports whether a reputation vendor is configured.
func (c Config) ReputationEnabled() bool {
	return c.ReputationKey != ""
}

// ParseMode parses a mode name. An empty value means enforce.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeEnforce, nil
	case ModeOff, ModeEnforce, ModeReviewOnly:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// ParseList splits a comma-separated list, trimming and lowercasing entries and dropping empty ones.
func ParseList(s string) []string {
	var out []string

	for _, item := range strings.Split(s, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}

	return out
}

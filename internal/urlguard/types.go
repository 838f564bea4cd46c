package urlguard

// Verdict is the outcome of a safety evaluation.
type Verdict string

const (
	VerdictAllow  Verdict = "allow"
	VerdictReview Verdict = "review"
	VerdictBlock  Verdict = "block"
	// VerdictUnknown is only produced by reputation lookups that did not run.
	VerdictUnknown Verdict = "unknown"
)

// Reasons attached to a Decision.
const (
	ReasonPolicyOff       = "policy_off"
	ReasonAllowlist       = "allowlist"
	ReasonDenylist        = "denylist"
	ReasonRiskyTLD        = "risky_tld"
	ReasonMixedScripts    = "mixed_scripts"
	ReasonSuspiciousLabel = "suspicious_label"
	ReasonRawIPHost       = "raw_ip_host"
	ReasonThreatIntel     = "threat_intel"
	ReasonClean           = "clean"
)

// Vendors reported on reputation-derived decisions.
const (
	VendorNone         = "none"
	VendorTimeout      = "timeout"
	VendorSafeBrowsing = "gsb"
)

// Decision is the combined safety verdict for a single URL.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
	Vendor  string  `json:"vendor,omitempty"`
}

func (d Decision) Blocked() bool { return d.Verdict == VerdictBlock }

func (d Decision) NeedsReview() bool { return d.Verdict == VerdictReview }

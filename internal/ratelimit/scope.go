package ratelimit

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scope categorizes a request for rate limiting purposes.
type Scope string

const (
	// ScopeGlobal applies to all requests.
	ScopeGlobal Scope = "global"
	// ScopeRedirect applies to short-link redirects.
	ScopeRedirect Scope = "redirect"
	// ScopeRead applies to link management reads.
	ScopeRead Scope = "read"
	// ScopeWrite applies to link creation and deletion.
	ScopeWrite Scope = "write"
)

// MetadataKey is the operation metadata key holding an EndpointConfig.
const MetadataKey = "rateLimit"

// EndpointConfig is per-operation rate limit configuration.
// Non-empty Limits replace the policy limits for the operation; Scope is then ignored.
type EndpointConfig struct {
	Scope    Scope
	Limits   []LimitConfig
	Disabled bool
}

// EndpointConfigFor returns the EndpointConfig attached to op, if any.
func EndpointConfigFor(op *huma.Operation) (EndpointConfig, bool) {
	if op == nil || op.Metadata == nil {
		return EndpointConfig{}, false
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)

	return cfg, ok
}

// ResolveScopes returns the policy scopes for a request. An explicit Scope in the
// operation metadata wins over method-based detection.
func ResolveScopes(op *huma.Operation, method string) []Scope {
	if cfg, ok := EndpointConfigFor(op); ok && cfg.Scope != "" {
		return []Scope{ScopeGlobal, cfg.Scope}
	}

	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return []Scope{ScopeGlobal, ScopeRead}
	default:
		return []Scope{ScopeGlobal, ScopeWrite}
	}
}

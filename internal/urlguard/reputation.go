package urlguard

import (
	"context"
	"errors"
)

var ErrLookupFailed = errors.New("reputation lookup failed")

// Reputation is a vendor's opinion of a URL. Verdict is allow, block or unknown.
type Reputation struct {
	Verdict Verdict `json:"verdict"`
	Vendor  string  `json:"vendor"`
}

// Lookup queries an external threat-intelligence vendor for a single URL.
// Implementations must honor ctx cancellation.
type Lookup interface {
	Lookup(ctx context.Context, rawURL string) (Reputation, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, rawURL string) (Reputation, error)

func (f LookupFunc) Lookup(ctx context.Context, rawURL string) (Reputation, error) {
	return f(ctx, rawURL)
}

// NoopLookup is used when no vendor is configured. It never performs I/O.
type NoopLookup struct{}

func (NoopLookup) Lookup(context.Context, string) (Reputation, error) {
	return Reputation{Verdict: VerdictUnknown, Vendor: VendorNone}, nil
}

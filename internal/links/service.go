package links

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/serroba/linkguard/internal/auth"
	"github.com/serroba/linkguard/internal/urlguard"
	"go.uber.org/zap"
)

// Code length limits for caller-chosen codes.
const (
	MinCodeLength = 4
	MaxCodeLength = 32
)

// SafetyChecker decides whether a destination may be shortened.
type SafetyChecker interface {
	Check(ctx context.Context, raw string) (urlguard.Decision, error)
}

// RejectionError carries the decision that stopped a link from being created.
type RejectionError struct {
	Decision urlguard.Decision
	err      error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v (%s)", e.err, e.Decision.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.err
}

// CreateInput is a request to shorten RealURL, optionally under a chosen Code.
type CreateInput struct {
	RealURL string
	Code    string
}

// Service implements the link operations exposed over HTTP.
type Service struct {
	repo         Repository
	guard        SafetyChecker
	lifecycle    *Lifecycle
	generateCode func() string
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(
	repo Repository,
	guard SafetyChecker,
	lifecycle *Lifecycle,
	generateCode func() string,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:         repo,
		guard:        guard,
		lifecycle:    lifecycle,
		generateCode: generateCode,
		logger:       logger,
		now:          time.Now,
	}
}

// Create checks the destination and stores a new link owned by p.
// The stored destination is the normalized form of in.RealURL.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Link, urlguard.Decision, error) {
	code := in.Code
	if code != "" {
		if err := validateCode(code); err != nil {
			return nil, urlguard.Decision{}, err
		}
	}

	n, err := urlguard.Normalize(in.RealURL)
	if err != nil {
		return nil, urlguard.Decision{}, err
	}

	decision, err := s.guard.Check(ctx, in.RealURL)
	if err != nil {
		return nil, decision, err
	}

	switch {
	case decision.Blocked():
		return nil, decision, &RejectionError{Decision: decision, err: ErrUnsafeURL}
	case decision.NeedsReview() && !p.IsAdmin():
		return nil, decision, &RejectionError{Decision: decision, err: ErrReviewRequired}
	case decision.NeedsReview():
		s.logger.Info("admin accepted url pending review",
			zap.Int64("owner_id", p.ID),
			zap.String("host", n.HostASCII),
			zap.String("reason", decision.Reason),
		)
	}

	if code == "" {
		code = s.generateCode()
	}

	existing, err := s.repo.Query(ctx, Filter{Codes: []string{code}})
	if err != nil {
		return nil, decision, fmt.Errorf("check code %q: %w", code, err)
	}

	if len(existing) > 0 {
		return nil, decision, ErrCodeExists
	}

	link := &Link{
		Code:      code,
		RealURL:   n.String(),
		OwnerID:   p.ID,
		Clicks:    0,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, link); err != nil {
		return nil, decision, err
	}

	return link, decision, nil
}

// List returns the visible links of p, or every visible link for admins.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]*Link, error) {
	filter := Filter{}
	if !p.IsAdmin() {
		filter.OwnerIDs = []int64{p.ID}
	}

	records, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]*Link, 0, len(records))
	for _, r := range records {
		if IsVisible(r) {
			visible = append(visible, r)
		}
	}

	return visible, nil
}

// Get returns the visible link addressed by key, a numeric id or a code.
func (s *Service) Get(ctx context.Context, p auth.Principal, key string) (*Link, error) {
	return s.find(ctx, p, key)
}

// Delete removes the link addressed by key.
func (s *Service) Delete(ctx context.Context, p auth.Principal, key string) (*Link, DeleteOutcome, error) {
	link, err := s.find(ctx, p, key)
	if err != nil {
		return nil, DeleteOutcome{}, err
	}

	outcome, err := s.lifecycle.Delete(ctx, link)
	if err != nil {
		return nil, DeleteOutcome{}, err
	}

	return link, outcome, nil
}

// Resolve follows a short code for a redirect.
func (s *Service) Resolve(ctx context.Context, code string) (*Link, error) {
	return s.lifecycle.Resolve(ctx, code)
}

func (s *Service) find(ctx context.Context, p auth.Principal, key string) (*Link, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}

	filter := Filter{Codes: []string{key}}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		filter = Filter{IDs: []int64{id}}
	}

	if !p.IsAdmin() {
		filter.OwnerIDs = []int64{p.ID}
	}

	records, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if IsVisible(r) {
			return r, nil
		}
	}

	return nil, ErrNotFound
}

func validateCode(code string) error {
	if n := len(code); n < MinCodeLength || n > MaxCodeLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidCode, MinCodeLength, MaxCodeLength)
	}

	if strings.HasPrefix(code, SoftDeletePrefix) {
		return fmt.Errorf("%w: reserved prefix %q", ErrInvalidCode, SoftDeletePrefix)
	}

	return nil
}

// IsRejection reports whether err is a safety rejection and returns its decision.
func IsRejection(err error) (urlguard.Decision, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Decision, true
	}

	return urlguard.Decision{}, false
}

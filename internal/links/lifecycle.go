package links

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SoftDeletePrefix marks the code of a soft-deleted link.
const SoftDeletePrefix = "del_"

// IsVisible reports whether a link may be listed, fetched or followed.
func IsVisible(l *Link) bool {
	return l != nil && !l.Deleted && l.Clicks >= 0 && !strings.HasPrefix(l.Code, SoftDeletePrefix)
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DeleteOutcome tells the caller which deletion path was taken.
type DeleteOutcome struct {
	Soft bool
}

// SoftDeletePatch tombstones a link and frees its code for reuse.
func SoftDeletePatch(code string, at time.Time) Patch {
	tombstone := fmt.Sprintf("%s%s_%d", SoftDeletePrefix, code, at.UnixMilli())
	empty := ""
	clicks := int64(-1)
	deleted := true

	return Patch{
		Code:      &tombstone,
		RealURL:   &empty,
		Clicks:    &clicks,
		Deleted:   &deleted,
		DeletedAt: &at,
	}
}

// Lifecycle owns link deletion and redirect resolution.
type Lifecycle struct {
	repo    Repository
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

func WithLifecycleMetrics(m *Metrics) LifecycleOption {
	return func(l *Lifecycle) { l.metrics = m }
}

// WithClock overrides the time source used for tombstones.
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) { l.now = now }
}

func NewLifecycle(repo Repository, logger *zap.Logger, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Delete removes link, falling back to a soft delete when the store refuses the hard delete.
func (m *Lifecycle) Delete(ctx context.Context, link *Link) (DeleteOutcome, error) {
	err := m.repo.DeleteByID(ctx, link.ID)
	if err == nil {
		m.metrics.observeDelete(false)

		return DeleteOutcome{}, nil
	}

	m.logger.Warn("hard delete failed, falling back to soft delete",
		zap.Int64("id", link.ID),
		zap.String("code", link.Code),
		zap.Error(err),
	)

	if _, err := m.repo.UpdateByID(ctx, link.ID, SoftDeletePatch(link.Code, m.now().UTC())); err != nil {
		return DeleteOutcome{}, fmt.Errorf("soft delete link %d: %w", link.ID, err)
	}

	m.metrics.observeDelete(true)

	return DeleteOutcome{Soft: true}, nil
}

// Resolve returns the visible link for code with its click count incremented.
// Unknown and deleted codes both yield ErrNotFound.
func (m *Lifecycle) Resolve(ctx context.Context, code string) (*Link, error) {
	records, err := m.repo.Query(ctx, Filter{Codes: []string{code}})
	if err != nil {
		return nil, fmt.Errorf("query code %q: %w", code, err)
	}

	var link *Link

	for _, r := range records {
		if IsVisible(r) {
			link = r

			break
		}
	}

	if link == nil {
		return nil, ErrNotFound
	}

	link.RealURL = strings.TrimSpace(link.RealURL)
	if !IsHTTPURL(link.RealURL) {
		return nil, ErrInvalidDestination
	}

	m.recordClick(ctx, link)

	return link, nil
}

// recordClick is a read-modify-write; concurrent redirects may lose increments.
func (m *Lifecycle) recordClick(ctx context.Context, link *Link) {
	next := link.Clicks + 1

	if _, err := m.repo.UpdateByID(ctx, link.ID, Patch{Clicks: &next}); err != nil {
		m.logger.Warn("click increment failed",
			zap.Int64("id", link.ID),
			zap.String("code", link.Code),
			zap.Error(err),
		)
		m.metrics.observeClickFailure()

		return
	}

	link.Clicks = next
}

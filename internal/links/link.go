package links

import (
	"context"
	"errors"
	"slices"
	"time"
)

var (
	ErrNotFound           = errors.New("link not found")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrCodeExists         = errors.New("code already exists")
	ErrInvalidCode        = errors.New("invalid code")
	ErrUnsafeURL          = errors.New("url is unsafe")
	ErrReviewRequired     = errors.New("url needs admin review")
)

// Link is a stored short link.
type Link struct {
	ID        int64
	Code      string
	RealURL   string
	OwnerID   int64
	Clicks    int64
	CreatedAt time.Time
	Deleted   bool
	DeletedAt *time.Time
}

// Clone returns a copy that shares no memory with l.
func (l *Link) Clone() *Link {
	c := *l
	if l.DeletedAt != nil {
		at := *l.DeletedAt
		c.DeletedAt = &at
	}

	return &c
}

// Filter selects records by equality. Each non-empty field matches any of its values;
// fields combine with AND. An empty Filter matches everything.
type Filter struct {
	IDs      []int64
	Codes    []string
	OwnerIDs []int64
}

func (f Filter) Matches(l *Link) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, l.ID) {
		return false
	}

	if len(f.Codes) > 0 && !slices.Contains(f.Codes, l.Code) {
		return false
	}

	if len(f.OwnerIDs) > 0 && !slices.Contains(f.OwnerIDs, l.OwnerID) {
		return false
	}

	return true
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Code      *string
	RealURL   *string
	Clicks    *int64
	Deleted   *bool
	DeletedAt *time.Time
}

// Apply writes the set fields of p onto l.
func (p Patch) Apply(l *Link) {
	if p.Code != nil {
		l.Code = *p.Code
	}

	if p.RealURL != nil {
		l.RealURL = *p.RealURL
	}

	if p.Clicks != nil {
		l.Clicks = *p.Clicks
	}

	if p.Deleted != nil {
		l.Deleted = *p.Deleted
	}

	if p.DeletedAt != nil {
		at := *p.DeletedAt
		l.DeletedAt = &at
	}
}

// Repository is the record store for links. Implementations return ErrNotFound
// from UpdateByID and DeleteByID for unknown ids, and ErrCodeExists from Insert.
type Repository interface {
	Query(ctx context.Context, filter Filter) ([]*Link, error)
	Insert(ctx context.Context, link *Link) error
	UpdateByID(ctx context.Context, id int64, patch Patch) (*Link, error)
	DeleteByID(ctx context.Context, id int64) error
}

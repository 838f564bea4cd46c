package events

import "time"

// Topics the link service publishes to.
const (
	TopicLinkCreated = "link.created"
	TopicLinkVisited = "link.visited"
	TopicLinkDeleted = "link.deleted"
	TopicURLRejected = "url.rejected"
)

// LinkCreatedEvent is emitted after a link is stored.
type LinkCreatedEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	RealURL   string    `json:"realUrl"`
	OwnerID   int64     `json:"ownerId"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
}

// LinkVisitedEvent is emitted for every successful redirect.
type LinkVisitedEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Clicks    int64     `json:"clicks"`
	VisitedAt time.Time `json:"visitedAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer,omitempty"`
}

// LinkDeletedEvent is emitted after a hard or soft delete.
type LinkDeletedEvent struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	OwnerID   int64     `json:"ownerId"`
	DeletedBy int64     `json:"deletedBy"`
	Soft      bool      `json:"soft"`
	DeletedAt time.Time `json:"deletedAt"`
}

// URLRejectedEvent is emitted when a destination is refused at creation.
type URLRejectedEvent struct {
	URL        string    `json:"url"`
	Verdict    string    `json:"verdict"`
	Reason     string    `json:"reason"`
	Vendor     string    `json:"vendor"`
	OwnerID    int64     `json:"ownerId"`
	ClientIP   string    `json:"clientIp"`
	RejectedAt time.Time `json:"rejectedAt"`
}

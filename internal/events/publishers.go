package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkguard/internal/messaging"
)

// Publishers bundles the typed publish functions for every topic.
type Publishers struct {
	LinkCreated messaging.Publish[LinkCreatedEvent]
	LinkVisited messaging.Publish[LinkVisitedEvent]
	LinkDeleted messaging.Publish[LinkDeletedEvent]
	URLRejected messaging.Publish[URLRejectedEvent]
}

// NewPublishers binds each topic to publisher.
func NewPublishers(publisher message.Publisher) Publishers {
	return Publishers{
		LinkCreated: messaging.NewPublishFunc[LinkCreatedEvent](publisher, TopicLinkCreated),
		LinkVisited: messaging.NewPublishFunc[LinkVisitedEvent](publisher, TopicLinkVisited),
		LinkDeleted: messaging.NewPublishFunc[LinkDeletedEvent](publisher, TopicLinkDeleted),
		URLRejected: messaging.NewPublishFunc[URLRejectedEvent](publisher, TopicURLRejected),
	}
}

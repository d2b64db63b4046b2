// Package events publishes source lifecycle events to Redis Streams for the
// ingestion scheduler and other downstream consumers.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/newsloom/source-manager/internal/models"
)

// StreamName is the Redis stream source events are appended to.
const StreamName = "source-events"

// EventType discriminates source lifecycle events.
type EventType string

const (
	// EventConfigSynthesized is emitted after a config is synthesized and
	// persisted for a newly registered source.
	EventConfigSynthesized EventType = "source.config.synthesized"
	// EventSourceDeleted is emitted when a source is soft-deleted.
	EventSourceDeleted EventType = "source.deleted"
)

// SourceEvent is the payload appended to the stream.
type SourceEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	SourceID   string          `json:"source_id"`
	Identifier string          `json:"identifier"`
	Platform   models.Platform `json:"platform,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

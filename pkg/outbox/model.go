// Package outbox appends domain events to the service's own database in the
// same transaction as the entity write, then relays them to Kafka. The
// stream is observational: cross-service effects go over synchronous HTTP
// and are never retried here.
package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is what the relay carries from the outbox table to the broker.
// Bookkeeping columns (status, relay_id, retry_count, last_error) stay in
// the store.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Traceparent   string
	CreatedAt     time.Time
}

package persist

import "github.com/tailored-agentic-units/datastore/observability"

// Persistence event types.
const (
	EventWrite  observability.EventType = "persist.write"
	EventLoad   observability.EventType = "persist.load"
	EventCreate observability.EventType = "persist.create"
	EventRetry  observability.EventType = "persist.retry"
	EventError  observability.EventType = "persist.error"
)

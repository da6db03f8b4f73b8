package store

import "github.com/tailored-agentic-units/datastore/observability"

const (
	// Store operations
	EventLoad     observability.EventType = "store.load"
	EventCreate   observability.EventType = "store.create"
	EventUpdate   observability.EventType = "store.update"
	EventDelete   observability.EventType = "store.delete"
	EventTruncate observability.EventType = "store.truncate"
	EventSave     observability.EventType = "store.save"
	EventClose    observability.EventType = "store.close"

	// Snapshots
	EventSnapshot observability.EventType = "store.snapshot"
	EventRestore  observability.EventType = "store.restore"
	EventBackup   observability.EventType = "history.backup"
	EventUndo     observability.EventType = "history.undo"
	EventSkip     observability.EventType = "history.skip"
)

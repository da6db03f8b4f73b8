package store_test

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/store"
)

func countEvents(eventType observability.EventType, n *atomic.Int32) observability.Observer {
	return observability.ObserverFunc(func(_ context.Context, e observability.Event) {
		if e.Type == eventType {
			n.Add(1)
		}
	})
}

// values returns detached copies of every entity, ordered by key.
func values(t *testing.T, s *store.Store[*contact]) []contact {
	t.Helper()
	all, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	out := make([]contact, len(all))
	for i, c := range all {
		out[i] = *c
		out[i].Tags = slices.Clone(c.Tags)
	}
	return out
}

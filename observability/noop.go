package observability

import "context"

// NoOpObserver discards every event. It is the default for stores that are
// not given an observer.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

package shared

import "context"

// ActivityEntry describes a single business action for the activity log.
type ActivityEntry struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	Details    map[string]interface{}
}

// ActivityRecorder records business activity entries. Recording is
// fire-and-forget: implementations must never fail the calling operation,
// and callers must not depend on a record being written.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// NoOpActivityRecorder discards all entries.
type NoOpActivityRecorder struct{}

// Record discards the entry.
func (NoOpActivityRecorder) Record(context.Context, ActivityEntry) {}

var _ ActivityRecorder = NoOpActivityRecorder{}

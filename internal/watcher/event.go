package watcher

import "time"

// EventType is the kind of change seen under a watched directory.
type EventType int

const (
	// EventAdded is emitted once a new or rewritten file stops changing.
	EventAdded EventType = iota
	// EventRemoved is emitted when a file is deleted or renamed away.
	EventRemoved
)

// String returns the name used in logs and metrics.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled file system change.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}

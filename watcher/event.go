package watcher

import "time"

// ChangeType classifies a coalesced file change.
type ChangeType int

const (
	Created ChangeType = iota
	Modified
	Deleted
	Renamed
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileChangeEvent is one coalesced change for one path.
// OldPath is set only for Renamed events.
type FileChangeEvent struct {
	Path      string
	Type      ChangeType
	Timestamp time.Time
	OldPath   string
}

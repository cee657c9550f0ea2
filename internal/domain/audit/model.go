package audit

import "time"

// Entry is a single append-only audit record. Every state-changing operation
// in the other domains writes exactly one.
type Entry struct {
	ID         string
	UserID     string
	UserRole   string
	Action     string
	Resource   string
	ResourceID string
	Details    string
	RecordedAt time.Time
}

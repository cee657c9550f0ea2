package triage

import (
	"time"

	"msk-care-coordination/internal/domain/pathway"
)

// RedFlag is a detected flag, recorded the moment the patient answers "yes".
type RedFlag struct {
	ID       string
	Question string
	Severity Severity
	Action   string
	Detected bool
}

// State is the in-progress triage pass. It is a plain value: every engine
// operation takes a State and returns the next one, which keeps the
// branching logic trivially testable. Nothing is persisted until Complete.
type State struct {
	PatientID    string
	NextQuestion int // index into RedFlagQuestions
	RedFlags     []RedFlag
	Phase        Phase

	// AcknowledgedHigh counts the high-severity flags the patient has
	// explicitly continued past. A new high flag beyond this count
	// re-triggers the safety stop.
	AcknowledgedHigh int
}

// Session is the immutable outcome of one completed triage pass. A retry
// creates a new session; only the pathway Accepted decisions may change
// afterwards.
type Session struct {
	ID           string
	PatientID    string
	Answers      map[string]string
	RedFlags     []RedFlag
	HasRedFlags  bool
	CarePathways []pathway.CarePathway
	CompletedAt  time.Time
}

package intake

import (
	"time"

	"msk-care-coordination/internal/domain/pathway"
)

// IntakeSummary is the condensed outcome of the discipline-specific intake
// questionnaire. One summary per accepted pathway; immutable once created.
type IntakeSummary struct {
	ID              string
	PatientID       string
	TriageSessionID string
	Discipline      pathway.Discipline
	Answers         map[string]string
	Summary         string
	CompletedAt     time.Time
}

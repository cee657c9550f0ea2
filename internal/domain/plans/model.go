package plans

import (
	"time"

	"msk-care-coordination/internal/domain/pathway"
)

// Status is the treatment-plan state machine:
//
//	draft → pending_consent → approved → active → completed
//
// with a shortcut straight to active the moment a care request is accepted.
// No transition ever regresses a plan out of active.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusPendingConsent Status = "pending_consent"
	StatusApproved       Status = "approved"
	StatusActive         Status = "active"
	StatusCompleted      Status = "completed"
)

// TreatmentPlan is the coordinator-authored record providers are matched
// against. WinningRequestID is the explicit per-plan aggregate the broker
// resolves the acceptance race onto; it is set at most once.
type TreatmentPlan struct {
	ID                string
	PatientID         string
	CoordinatorID     string
	IntakeSummaryID   string
	Goals             []string
	Disciplines       []pathway.Discipline
	EstimatedSessions int
	InsurerApproved   bool
	Declarable        bool
	WinningRequestID  *string
	Status            Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

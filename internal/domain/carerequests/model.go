package carerequests

import (
	"time"

	"msk-care-coordination/internal/domain/pathway"
)

// Status of a single care request.
//
//	pending:   sent, awaiting the provider's answer
//	accepted:  the provider won the race; at most one per plan
//	declined:  the provider explicitly refused
//	withdrawn: retired because a sibling was accepted first
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusWithdrawn Status = "withdrawn"
)

// Decision a provider can take on a pending request. There is no cancel:
// a sent request resolves only through the provider or the race.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// CareRequest is one offer of a treatment plan to one candidate provider.
type CareRequest struct {
	ID              string
	TreatmentPlanID string
	PatientID       string
	ProviderID      string
	ProviderName    string
	Discipline      pathway.Discipline
	Status          Status
	SentAt          time.Time
	RespondedAt     *time.Time
	AppointmentDate *time.Time
}

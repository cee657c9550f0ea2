package consent

import "time"

// Type enumerates the consent classes a patient can grant.
type Type string

const (
	TypeDataProcessing     Type = "data_processing"
	TypeShareIntake        Type = "share_intake"
	TypeShareTreatmentPlan Type = "share_treatment_plan"
	TypeCareExecution      Type = "care_execution"
)

// Consent is one ledger record. Revocation is a new record with Granted=false;
// history is never rewritten or deleted.
type Consent struct {
	ID          string
	PatientID   string
	Type        Type
	Granted     bool
	Description string
	RecordedAt  time.Time
}

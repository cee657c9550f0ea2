package patients

import "time"

// Patient holds identity and insurance attributes. Identity fields are set
// once at registration and never change; consents and triage sessions hang
// off the patient in their own domains.
type Patient struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	BirthDate *time.Time
	Insurer   string

	CreatedAt time.Time
}

package auth

// Role identifies the kind of actor behind a request.
type Role string

const (
	RolePatient     Role = "patient"
	RoleCoordinator Role = "coordinator"
	RoleProvider    Role = "provider"
)

// Claims is the information extracted from a verified token.
type Claims struct {
	UserID string
	Email  string
	Role   Role
}

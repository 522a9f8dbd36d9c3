package api

type Role string

const (
	AdminRole      Role = "ADMIN"
	QARole         Role = "QA"
	SupervisorRole Role = "SUPERVISOR"
	UserRole       Role = "USER"
)

var AllRoles = []Role{AdminRole, QARole, SupervisorRole, UserRole}

// GetRole normalizes a role string coming out of a token claim.
// Unrecognized values map to the empty Role, which carries no access.
func GetRole(s string) Role {
	switch Role(s) {
	case AdminRole:
		return AdminRole
	case QARole:
		return QARole
	case SupervisorRole:
		return SupervisorRole
	case UserRole:
		return UserRole
	}
	return ""
}

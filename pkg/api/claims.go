package api

// Claims are the identity attributes extracted from a verified bearer token.
// The token signature is checked by the TokenVerifier collaborator before a
// Claims value is ever constructed; nothing downstream re-verifies it.
type Claims struct {
	Subject           string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email,omitempty"`
	Name              string   `json:"name,omitempty"`
	Roles             []string `json:"roles"`
}

// MaxRole returns the highest-privilege recognized role in the claim set.
// An empty or unrecognized role list yields the empty Role: access checks
// fail closed.
func (c Claims) MaxRole() Role {
	var max Role
	for _, r := range c.Roles {
		role := GetRole(r)
		if role == "" {
			continue
		}
		if max == "" || roleToPriority(role) > roleToPriority(max) {
			max = role
		}
	}
	return max
}

func (c Claims) HasRole(role Role) bool {
	for _, r := range c.Roles {
		if GetRole(r) == role {
			return true
		}
	}
	return false
}

func roleToPriority(role Role) int {
	switch role {
	case UserRole:
		return 0
	case SupervisorRole:
		return 1
	case QARole:
		return 2
	case AdminRole:
		return 3
	default:
		return -1
	}
}

// HasAccess reports whether currRole satisfies minRole. The empty Role never
// satisfies anything.
func HasAccess(currRole, minRole Role) bool {
	if currRole == "" {
		return false
	}
	return roleToPriority(currRole) >= roleToPriority(minRole)
}

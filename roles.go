package sessions

// UserRole is the user's administrative tier. Ordinary members carry no role.
type UserRole string

const (
	// RoleMember is an ordinary account with no administrative capability.
	RoleMember UserRole = ""
	// RoleAdminTier2 is the lowest admin tier (read-only administration).
	RoleAdminTier2 UserRole = "admin_2"
	// RoleAdminTier1 is the mid admin tier (user management).
	RoleAdminTier1 UserRole = "admin_1"
	// RoleAdminTier0 is the highest admin tier (full control).
	RoleAdminTier0 UserRole = "admin_0"
)

// IsValid checks if the role is one of the predefined valid roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleMember, RoleAdminTier2, RoleAdminTier1, RoleAdminTier0:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role carries any administrative tier.
func (r UserRole) IsAdmin() bool {
	switch r {
	case RoleAdminTier2, RoleAdminTier1, RoleAdminTier0:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required tier.
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	currentLevel, ok := roleHierarchy(r)
	if !ok {
		return false
	}

	minLevel, ok := roleHierarchy(minRole)
	if !ok {
		return false
	}

	return currentLevel >= minLevel
}

func roleHierarchy(r UserRole) (int, bool) {
	switch r {
	case RoleMember:
		return 0, true
	case RoleAdminTier2:
		return 1, true
	case RoleAdminTier1:
		return 2, true
	case RoleAdminTier0:
		return 3, true
	default:
		return 0, false
	}
}

// RequireRole is the single authorization capability check used by boundary
// layers: it reports whether role is one of the allowed roles. An empty
// allowed list admits any valid role.
func RequireRole(role UserRole, allowed ...UserRole) bool {
	if !role.IsValid() {
		return false
	}

	if len(allowed) == 0 {
		return true
	}

	for _, a := range allowed {
		if role == a {
			return true
		}
	}

	return false
}

// GetAllRoles returns all predefined roles in ascending hierarchical order.
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleMember,
		RoleAdminTier2,
		RoleAdminTier1,
		RoleAdminTier0,
	}
}

// ParseRole safely parses a string into a UserRole.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

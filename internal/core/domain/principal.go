package domain

type Role string

const (
	RoleWorker       Role = "worker"
	RoleProfessional Role = "professional"
	RoleFirm         Role = "firm"
	RoleAdmin        Role = "admin"
)

// Principal is the authenticated caller supplied by the session provider.
type Principal struct {
	AccountID string
	Role      Role
}

// CanActFor reports whether the principal may use the credits of accountID.
func (p Principal) CanActFor(accountID string) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.AccountID != "" && p.AccountID == accountID
}

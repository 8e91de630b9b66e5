package models

// Actor is the authenticated caller of a service operation along with the
// request metadata recorded in the audit log.
type Actor struct {
	UserID    int64
	Email     string
	Role      string
	IPAddress string
	UserAgent string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// CanAccessProject reports whether the actor owns the project or administers the system.
func (a *Actor) CanAccessProject(p *Project) bool {
	if a == nil || p == nil {
		return false
	}
	return a.IsAdmin() || p.OwnerID == a.UserID
}

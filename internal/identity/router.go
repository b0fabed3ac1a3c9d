package identity

// Route picks the landing surface for a credential and role. Both phases call
// it; it has no side effects.
func Route(cred Credential, role RoleHint) Destination {
	if !cred.Present() {
		return DestRegister
	}
	switch role {
	case RoleAdmin:
		return DestAdminDashboard
	case RoleEmployee:
		return DestEmployeeDashboard
	case RoleEmployer:
		return DestEmployerDashboard
	}
	return DestHome
}

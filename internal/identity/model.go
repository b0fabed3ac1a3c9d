package identity

import "strings"

// Storage keys and cookie names shared by both transports.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserRole     = "userRole"
)

type RoleHint string

const (
	RoleAdmin    RoleHint = "admin"
	RoleEmployer RoleHint = "employer"
	RoleEmployee RoleHint = "employee"
	RoleUnknown  RoleHint = "unknown"
)

// ParseRoleHint maps a stored or fetched role string onto a RoleHint.
// Anything unrecognised is RoleUnknown.
func ParseRoleHint(s string) RoleHint {
	switch RoleHint(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleEmployer:
		return RoleEmployer
	case RoleEmployee:
		return RoleEmployee
	}
	return RoleUnknown
}

func (r RoleHint) Known() bool {
	return r == RoleAdmin || r == RoleEmployer || r == RoleEmployee
}

// Credential is the pair of opaque tokens proving a session may exist.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

func (c Credential) Present() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

type ResolvedIdentity struct {
	Credential Credential
	Role       RoleHint
}

type Destination string

const (
	DestAdminDashboard    Destination = "admin-dashboard"
	DestEmployeeDashboard Destination = "employee-dashboard"
	DestEmployerDashboard Destination = "employer-dashboard"
	DestHome              Destination = "home"
	DestRegister          Destination = "register"
)

var destinationPaths = map[Destination]string{
	DestAdminDashboard:    "/admin-dashboard",
	DestEmployeeDashboard: "/employee-dashboard",
	DestEmployerDashboard: "/employer/dashboard",
	DestHome:              "/",
	DestRegister:          "/register",
}

// Path returns the route the surrounding application serves the destination on.
func (d Destination) Path() string {
	return destinationPaths[d]
}

// DestinationForPath is the inverse of Path. Trailing slashes are ignored.
func DestinationForPath(p string) (Destination, bool) {
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	for d, path := range destinationPaths {
		if path == p {
			return d, true
		}
	}
	return "", false
}

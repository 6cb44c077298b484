package auth

import "time"

// User roles. The coarse role string gates admin surfaces; the optional
// RoleID binding carries the fine-grained permission set.
const (
	RoleEmployee = "Employee"
	RoleAdmin    = "Admin"
)

// Job positions.
const (
	PositionTechnician    = "Technician"
	PositionManager       = "Manager"
	PositionOperator      = "Operator"
	PositionSupervisor    = "Supervisor"
	PositionAdministrator = "Administrator"
)

// Departments.
const (
	DepartmentTechnical      = "Technical"
	DepartmentManagement     = "Management"
	DepartmentProduction     = "Production"
	DepartmentQuality        = "Quality"
	DepartmentAdministration = "Administration"
)

// Positions lists every valid job position.
var Positions = []string{
	PositionTechnician,
	PositionManager,
	PositionOperator,
	PositionSupervisor,
	PositionAdministrator,
}

// Departments lists every valid department.
var Departments = []string{
	DepartmentTechnical,
	DepartmentManagement,
	DepartmentProduction,
	DepartmentQuality,
	DepartmentAdministration,
}

// User is an identity record. The password hash never leaves the service
// layer; JSON encoding drops it.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	Position       string    `json:"position"`
	Department     string    `json:"department"`
	GoogleID       string    `json:"google_id,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	OTPVerified    bool      `json:"otp_verified"`
	Active         bool      `json:"active"`
	RoleID         string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RefreshToken is the single live opaque token for a user. A new login
// overwrites the previous row (upsert by user id).
type RefreshToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetToken is a short-lived password-recovery artifact. At most one set is
// live per user: issuing a new one deletes all prior rows first.
type ResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OTP       string    `json:"-"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Permission grants a set of actions on one resource.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// Role is a named bundle of permissions assignable to users via User.RoleID.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Permission resources.
const (
	ResourceSettings   = "settings"
	ResourceUsers      = "users"
	ResourceTasks      = "tasks"
	ResourceAlerts     = "alerts"
	ResourceAttendance = "attendance"
)

// Permission actions.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Resources lists every valid permission resource.
var Resources = []string{
	ResourceSettings,
	ResourceUsers,
	ResourceTasks,
	ResourceAlerts,
	ResourceAttendance,
}

// Actions lists every valid permission action.
var Actions = []string{ActionRead, ActionWrite, ActionDelete}

// ListFilter narrows admin user listings. Zero values mean "no constraint";
// Email and Name match as case-insensitive substrings.
type ListFilter struct {
	Role       string
	Position   string
	Department string
	Active     *bool
	Email      string
	Name       string
	Page       int
	Limit      int
}

// Pagination describes a page of an admin listing.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalUsers  int  `json:"total_users"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// UserUpdate is a typed partial update. Name, Position and Department are
// self-updatable; the rest is the admin tier.
type UserUpdate struct {
	Name       *string
	Position   *string
	Department *string

	Role     *string
	Email    *string
	Active   *bool
	Password *string
}

// TokenPair bundles the credentials returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserSummary is the redacted view returned alongside a login.
type UserSummary struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// Summary builds the redacted login view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Position:   u.Position,
		Department: u.Department,
	}
}

func validPosition(p string) bool {
	for _, v := range Positions {
		if v == p {
			return true
		}
	}
	return false
}

func validDepartment(d string) bool {
	for _, v := range Departments {
		if v == d {
			return true
		}
	}
	return false
}

func validRole(r string) bool {
	return r == RoleEmployee || r == RoleAdmin
}

func validResource(res string) bool {
	for _, v := range Resources {
		if v == res {
			return true
		}
	}
	return false
}

func validAction(a string) bool {
	for _, v := range Actions {
		if v == a {
			return true
		}
	}
	return false
}

package repo

// Directory role ids.
const (
	RoleAdmin      = 1
	RoleAccountant = 2
	RoleManager    = 3
)

// SubmitterRoles may submit assessments and time entries.
var SubmitterRoles = []int{RoleAccountant, RoleManager}

// DirectoryEntry is one staff/property/role row of the staff directory.
type DirectoryEntry struct {
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name"`
	Email        string `json:"email_address"`
	UserName     string `json:"user_name"`
	UserID       string `json:"user_id,omitempty"`
	Role         string `json:"user_role"`
	RoleID       int    `json:"user_role_id"`
}

package directory

// Community is the projection of directory rows the UI renders in its
// community picker. RoleID is only set for per-user listings.
type Community struct {
	ID          string `json:"ID"`
	Name        string `json:"Name"`
	DisplayName string `json:"DisplayName"`
	RoleID      *int   `json:"userRoleId,omitempty"`
}

// CommunityRef is the short {id, name} form used by admin lookups.
type CommunityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignment is one property a staff member is attached to.
type Assignment struct {
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name"`
}

// StaffMember groups every directory row of one email.
type StaffMember struct {
	UserName   string       `json:"user_name"`
	Email      string       `json:"email_address"`
	Role       string       `json:"user_role"`
	RoleID     int          `json:"user_role_id"`
	Properties []Assignment `json:"properties"`
}

// User is the directory identity of an email.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	ID    string `json:"id"`
}

// UserCommunities is what a caller may submit for.
type UserCommunities struct {
	Communities     []Community `json:"communities"`
	AvailableRoles  []int       `json:"availableRoles"`
	RedirectToAdmin bool        `json:"redirectToAdmin"`
}

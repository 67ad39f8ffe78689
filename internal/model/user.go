package model

import "time"

// UserRole represents the role of a user in the congregation
type UserRole string

const (
	UserRoleMember UserRole = "member" // Default role
	UserRoleStaff  UserRole = "staff"  // Pastors and ministry leads; manage content
	UserRoleAdmin  UserRole = "admin"  // Full access including roles and audit log
)

// IsValid returns true if the role is known
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleMember, UserRoleStaff, UserRoleAdmin:
		return true
	}
	return false
}

// User represents a member account
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Hash             *string    `json:"-"` // Never expose password hash
	Firstname        *string    `json:"firstname,omitempty"`
	Lastname         *string    `json:"lastname,omitempty"`
	Role             UserRole   `json:"role"`
	Phone            *string    `json:"phone,omitempty"`
	Bio              *string    `json:"bio,omitempty"`
	Ministries       []string   `json:"ministries,omitempty"`
	DirectoryVisible bool       `json:"directory_visible"`
	ShowContact      bool       `json:"show_contact"`
	PrayerPartner    bool       `json:"prayer_partner"`
	EmailVerified    bool       `json:"email_verified"`
	CreatedOn        time.Time  `json:"created_on"`
	UpdatedOn        time.Time  `json:"updated_on"`
	LoginOn          *time.Time `json:"login_on,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// IsStaff returns true if the user has staff or admin role
func (u *User) IsStaff() bool {
	return u.Role == UserRoleStaff || u.Role == UserRoleAdmin
}

// FirstName returns the first name or an empty string
func (u *User) FirstName() string {
	if u.Firstname == nil {
		return ""
	}
	return *u.Firstname
}

// LastName returns the last name or an empty string
func (u *User) LastName() string {
	if u.Lastname == nil {
		return ""
	}
	return *u.Lastname
}

// DisplayName joins first and last name, falling back to the email
func (u *User) DisplayName() string {
	name := u.FirstName()
	if last := u.LastName(); last != "" {
		if name != "" {
			name += " "
		}
		name += last
	}
	if name == "" {
		return u.Email
	}
	return name
}

// DirectoryEntry is the public face of a member in the directory
type DirectoryEntry struct {
	ID         string   `json:"id"`
	Firstname  string   `json:"firstname"`
	Lastname   string   `json:"lastname"`
	Ministries []string `json:"ministries,omitempty"`
	Bio        *string  `json:"bio,omitempty"`
	Email      *string  `json:"email,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
}

// ToDirectoryEntry strips private fields; contact details only when the member opted in
func (u *User) ToDirectoryEntry() *DirectoryEntry {
	entry := &DirectoryEntry{
		ID:         u.ID,
		Firstname:  u.FirstName(),
		Lastname:   u.LastName(),
		Ministries: u.Ministries,
		Bio:        u.Bio,
	}
	if u.ShowContact {
		email := u.Email
		entry.Email = &email
		entry.Phone = u.Phone
	}
	return entry
}

// UpdateProfileRequest represents a member editing their own profile
type UpdateProfileRequest struct {
	Firstname        *string  `json:"firstname,omitempty" validate:"omitempty,max=100"`
	Lastname         *string  `json:"lastname,omitempty" validate:"omitempty,max=100"`
	Phone            *string  `json:"phone,omitempty" validate:"omitempty,max=30"`
	Bio              *string  `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Ministries       []string `json:"ministries,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
	DirectoryVisible *bool    `json:"directory_visible,omitempty"`
	ShowContact      *bool    `json:"show_contact,omitempty"`
	PrayerPartner    *bool    `json:"prayer_partner,omitempty"`
}

// Validate validates the profile update
func (r *UpdateProfileRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// UpdateRoleRequest represents an admin changing a member's role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member staff admin"`
}

// Validate validates the role change
func (r *UpdateRoleRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// DirectoryQuery filters the member directory
type DirectoryQuery struct {
	Search string
	PageRequest
}

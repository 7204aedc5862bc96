package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/internal/passwords"
)

// Role is the coarse permission tier of a User
type Role string

const (
	// RoleAdmin may edit site content
	RoleAdmin Role = "ADMIN"
	// RoleSuperAdmin may additionally manage users and read the audit log
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents an operator that can sign in to the CMS.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	// Username is the unique login name
	Username string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	// PasswordHash stores the digest described by PasswordScheme
	PasswordHash string `gorm:"not null" json:"-"`
	// PasswordScheme tags PasswordHash; empty values are detected on read
	PasswordScheme passwords.Scheme `gorm:"size:16" json:"-"`
	// Name is the display name
	Name string `json:"name"`
	Role Role   `gorm:"size:16;not null" json:"role"`
	// MustChangePassword forces the next session through a password change
	MustChangePassword bool `json:"mustChangePassword"`
}

// BeforeCreate assigns an opaque id
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser is the identity shape returned by the auth endpoints
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Public strips everything but the identity fields
func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	}
}

// NewUser holds the data needed to create a User
type NewUser struct {
	Username           string
	Password           string
	Name               string
	Role               Role
	MustChangePassword bool
}

// UsersStore abstracts CRUD and authentication helpers for CMS users.
type UsersStore interface {
	// Count returns the number of users present in the store
	Count() (int64, error)
	// List returns all users ordered by creation time
	List() ([]User, error)
	// Get returns a user by id
	Get(id string) (*User, error)
	// GetByUsername returns a user by username
	GetByUsername(username string) (*User, error)
	// Create creates a user; the implementation must hash the password
	Create(user NewUser) (*User, error)
	// Update changes display name and/or role
	Update(id string, name *string, role *Role) (*User, error)
	// SetPassword replaces the password and sets the forced-rotation flag
	SetPassword(id, password string, mustChange bool) (*User, error)
	// Delete deletes a user by id
	Delete(id string) error
	// Authenticate checks a username/password combo and returns the user.
	// Unknown users and wrong passwords both yield InvalidCredentialsError.
	Authenticate(username, password string) (*User, error)
	// VerifyPassword checks the password of the user with the given id
	VerifyPassword(id, password string) (bool, error)
}

// Package accounts implements login, password rotation and user management
// on top of the user store, the token issuer, the login lockout and the
// audit log.
package accounts

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// MinPasswordLength is the minimal length of a new password
const MinPasswordLength = 6

// Errors returned by the Service. Their messages are shown to the caller.
var (
	ErrInvalidCredentials       = errors.New("Invalid credentials")
	ErrWeakPassword             = errors.Errorf("Password must be at least %d characters long", MinPasswordLength)
	ErrCurrentPasswordRequired  = errors.New("Current password is required")
	ErrCurrentPasswordIncorrect = errors.New("Current password is incorrect")
	ErrSelfRoleChange           = errors.New("You cannot change your own role")
	ErrSelfDelete               = errors.New("You cannot delete your own account")
)

// LockedError is returned by Login while an account is locked
type LockedError struct {
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *LockedError) Error() string {
	return "Too many failed login attempts, please try again later"
}

// Service bundles the account operations
type Service struct {
	users   model.UsersStore
	issuer  *tokens.Issuer
	lockout *throttle.AccountLockout
	audit   *audit.Recorder
}

// NewService creates a Service; lockout may be nil to disable the
// server-side lockout
func NewService(
	users model.UsersStore, issuer *tokens.Issuer, lockout *throttle.AccountLockout, recorder *audit.Recorder,
) *Service {
	return &Service{
		users:   users,
		issuer:  issuer,
		lockout: lockout,
		audit:   recorder,
	}
}

// Issuer returns the token issuer
func (s *Service) Issuer() *tokens.Issuer {
	return s.issuer
}

// LoginResult is the outcome of a successful Login
type LoginResult struct {
	User               model.PublicUser
	Token              string
	ExpiresAt          time.Time
	MustChangePassword bool
}

// Login checks the credentials and mints a session token. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(username, password, clientIP string) (*LoginResult, error) {
	if s.lockout != nil {
		wait, err := s.lockout.Check(username)
		if err != nil {
			log.WithError(err).Error("could not check login lockout")
		} else if wait > 0 {
			return nil, &LockedError{RetryAfter: wait}
		}
	}
	user, err := s.users.Authenticate(username, password)
	if err != nil {
		if !errors.As(err, &model.InvalidCredentialsError{}) {
			return nil, err
		}
		s.loginFailed(username, clientIP)
		return nil, ErrInvalidCredentials
	}
	if s.lockout != nil {
		if err = s.lockout.Reset(username); err != nil {
			log.WithError(err).Error("could not reset login lockout")
		}
	}
	token, exp, err := s.issuer.Issue(
		tokens.Identity{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
	)
	if err != nil {
		return nil, err
	}
	s.audit.Login(user.Username, clientIP)
	log.WithField("user", user.Username).Info("login succeeded")
	return &LoginResult{
		User:               user.Public(),
		Token:              token,
		ExpiresAt:          exp,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

func (s *Service) loginFailed(username, clientIP string) {
	fields := log.Fields{
		"user": username,
		"ip":   clientIP,
	}
	if s.lockout == nil {
		log.WithFields(fields).Info("login failed")
		return
	}
	locked, err := s.lockout.Failure(username)
	if err != nil {
		log.WithError(err).Error("could not record failed login")
	}
	if locked > 0 {
		log.WithFields(fields).WithField("lock", locked).Warn("login failed, account locked")
		return
	}
	log.WithFields(fields).Info("login failed")
}

// Logout records the end of a session
func (s *Service) Logout(id tokens.Identity) {
	s.audit.Recordf(
		model.AuditActionLogout, model.AuditEntityUser, id.Username, "User %s logged out", id.Username,
	)
}

// RotationRequest is the body of a password change request
type RotationRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Rotation is either a ForcedRotation or a NormalRotation
type Rotation interface {
	newPassword() string
}

// ForcedRotation replaces a password the user was told to change; the
// current password is not asked for
type ForcedRotation struct {
	NewPassword string
}

func (r ForcedRotation) newPassword() string { return r.NewPassword }

// NormalRotation is a voluntary change that requires the current password
type NormalRotation struct {
	CurrentPassword string
	NewPassword     string
}

func (r NormalRotation) newPassword() string { return r.NewPassword }

// ResolveRotation picks the kind of rotation from the stored flag; the shape
// of the request has no influence on it
func ResolveRotation(mustChangePassword bool, req RotationRequest) Rotation {
	if mustChangePassword {
		return ForcedRotation{NewPassword: req.NewPassword}
	}
	return NormalRotation{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}
}

// ValidatePassword checks the password policy
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ChangePassword changes the password of the user userID and clears the
// forced-rotation flag
func (s *Service) ChangePassword(userID string, req RotationRequest) error {
	user, err := s.users.Get(userID)
	if err != nil {
		return err
	}
	rotation := ResolveRotation(user.MustChangePassword, req)
	if err = ValidatePassword(rotation.newPassword()); err != nil {
		return err
	}
	if r, ok := rotation.(NormalRotation); ok {
		if r.CurrentPassword == "" {
			return ErrCurrentPasswordRequired
		}
		valid, err := s.users.VerifyPassword(userID, r.CurrentPassword)
		if err != nil {
			return err
		}
		if !valid {
			return ErrCurrentPasswordIncorrect
		}
	}
	if _, err = s.users.SetPassword(userID, rotation.newPassword(), false); err != nil {
		return err
	}
	s.audit.Recordf(
		model.AuditActionUpdate, model.AuditEntityUser, user.Username, "User %s changed their password",
		user.Username,
	)
	return nil
}

// CreateUserRequest is the body of a user creation request
type CreateUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

// CreateUser creates a user that has to change the password on first login
func (s *Service) CreateUser(actor tokens.Identity, req CreateUserRequest) (*model.User, error) {
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	user, err := s.users.Create(
		model.NewUser{
			Username:           req.Username,
			Password:           req.Password,
			Name:               req.Name,
			Role:               req.Role,
			MustChangePassword: true,
		},
	)
	if err != nil {
		return nil, err
	}
	s.audit.Recordf(
		model.AuditActionCreate, model.AuditEntityUser, actor.Username, "Created user: %s (%s)", user.Username,
		user.Role,
	)
	return user, nil
}

// UpdateUserRequest is the body of a user update request
type UpdateUserRequest struct {
	Name *string     `json:"name"`
	Role *model.Role `json:"role"`
}

// UpdateUser changes name and/or role. Nobody can change their own role.
func (s *Service) UpdateUser(actor tokens.Identity, id string, req UpdateUserRequest) (*model.User, error) {
	if req.Role != nil && id == actor.UserID {
		return nil, ErrSelfRoleChange
	}
	current, err := s.users.Get(id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Update(id, req.Name, req.Role)
	if err != nil {
		return nil, err
	}
	details := fmt.Sprintf("Updated user: %s", user.Username)
	if current.Role != user.Role {
		details = fmt.Sprintf("%s (role %s -> %s)", details, current.Role, user.Role)
	}
	s.audit.Record(model.AuditActionUpdate, model.AuditEntityUser, details, actor.Username)
	return user, nil
}

// DeleteUser deletes a user. Nobody can delete their own account.
func (s *Service) DeleteUser(actor tokens.Identity, id string) error {
	if id == actor.UserID {
		return ErrSelfDelete
	}
	user, err := s.users.Get(id)
	if err != nil {
		return err
	}
	if err = s.users.Delete(id); err != nil {
		return err
	}
	s.audit.Recordf(
		model.AuditActionDelete, model.AuditEntityUser, actor.Username, "Deleted user: %s", user.Username,
	)
	return nil
}

// ResetPassword sets a new password for another user and forces them to
// change it on the next login
func (s *Service) ResetPassword(actor tokens.Identity, id, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	user, err := s.users.SetPassword(id, password, true)
	if err != nil {
		return err
	}
	if s.lockout != nil {
		if err = s.lockout.Reset(user.Username); err != nil {
			log.WithError(err).Error("could not reset login lockout")
		}
	}
	s.audit.Recordf(
		model.AuditActionReset, model.AuditEntityUser, actor.Username, "Reset password for user: %s",
		user.Username,
	)
	return nil
}

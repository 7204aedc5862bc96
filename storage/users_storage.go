package storage

import (
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/storage/model"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// UsersStorage implements model.UsersStore using GORM
type UsersStorage struct {
	db     *gorm.DB
	hasher *passwords.Hasher
}

// Count returns the number of users present in the store
func (s *UsersStorage) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "users: count failed")
	}
	return count, nil
}

// List returns all users (without password hashes)
func (s *UsersStorage) List() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "users: list failed")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *UsersStorage) find(query string, arg string) (*model.User, error) {
	var u model.User
	if err := s.db.Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("user not found: %s", arg)
		}
		return nil, errors.Wrap(err, "users: get failed")
	}
	return &u, nil
}

// Get returns a user by id
func (s *UsersStorage) Get(id string) (*model.User, error) {
	u, err := s.find("id = ?", id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// GetByUsername returns a user by username
func (s *UsersStorage) GetByUsername(username string) (*model.User, error) {
	u, err := s.find("username = ?", username)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Create creates a user with an Argon2id-hashed password
func (s *UsersStorage) Create(nu model.NewUser) (*model.User, error) {
	if len(nu.Username) == 0 || len(nu.Password) == 0 {
		return nil, model.ValidationError("username and password are required")
	}
	if !usernamePattern.MatchString(nu.Username) {
		return nil, model.ValidationError("username must be alphanumeric")
	}
	if nu.Role == "" {
		nu.Role = model.RoleAdmin
	}
	if !nu.Role.Valid() {
		return nil, model.ValidationError("invalid role")
	}
	var existing int64
	if err := s.db.Model(&model.User{}).Where("username = ?", nu.Username).Count(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "users: create failed")
	}
	if existing > 0 {
		return nil, model.AlreadyExistsErrorFmt("user already exists: %s", nu.Username)
	}
	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return nil, err
	}
	u := model.User{
		Username:           nu.Username,
		PasswordHash:       hash,
		PasswordScheme:     passwords.SchemeV1,
		Name:               nu.Name,
		Role:               nu.Role,
		MustChangePassword: nu.MustChangePassword,
	}
	if err = s.db.Create(&u).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, model.AlreadyExistsErrorFmt("user already exists: %s", nu.Username)
		}
		return nil, errors.Wrap(err, "users: create failed")
	}
	u.PasswordHash = ""
	return &u, nil
}

// Update updates display name and role
func (s *UsersStorage) Update(id string, name *string, role *model.Role) (*model.User, error) {
	u, err := s.find("id = ?", id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		u.Name = *name
	}
	if role != nil {
		if !role.Valid() {
			return nil, model.ValidationError("invalid role")
		}
		u.Role = *role
	}
	if err = s.db.Save(u).Error; err != nil {
		return nil, errors.Wrap(err, "users: update failed")
	}
	u.PasswordHash = ""
	return u, nil
}

// SetPassword stores a fresh HASH_V1 digest of password and sets the
// forced-rotation flag to mustChange
func (s *UsersStorage) SetPassword(id, password string, mustChange bool) (*model.User, error) {
	if len(password) == 0 {
		return nil, model.ValidationError("password cannot be empty")
	}
	u, err := s.find("id = ?", id)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.PasswordScheme = passwords.SchemeV1
	u.MustChangePassword = mustChange
	if err = s.db.Save(u).Error; err != nil {
		return nil, errors.Wrap(err, "users: set password failed")
	}
	u.PasswordHash = ""
	return u, nil
}

// Delete deletes a user by id
func (s *UsersStorage) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "users: delete failed")
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("user not found: %s", id)
	}
	return nil
}

// Authenticate validates username/password. Unknown usernames still spend a
// full hash computation. Legacy digests and digests created with outdated
// argon2id parameters are replaced after a successful verification.
func (s *UsersStorage) Authenticate(username, password string) (*model.User, error) {
	u, err := s.find("username = ?", username)
	if err != nil {
		var notFound model.NotFoundError
		if errors.As(err, &notFound) {
			s.hasher.VerifyDummy(password)
			return nil, model.InvalidCredentialsError{}
		}
		return nil, err
	}
	if err = s.verify(u, password); err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// VerifyPassword checks the password of the user with the given id
func (s *UsersStorage) VerifyPassword(id, password string) (bool, error) {
	u, err := s.find("id = ?", id)
	if err != nil {
		return false, err
	}
	if err = s.verify(u, password); err != nil {
		if errors.As(err, &model.InvalidCredentialsError{}) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *UsersStorage) verify(u *model.User, password string) error {
	ok, needsRehash, err := s.hasher.Verify(u.PasswordScheme, u.PasswordHash, password)
	if err != nil {
		log.WithError(err).WithField("user", u.Username).Error("stored password hash is unreadable")
		return model.InvalidCredentialsError{}
	}
	if !ok {
		return model.InvalidCredentialsError{}
	}
	if needsRehash {
		s.migrateHash(u, password)
	}
	return nil
}

func (s *UsersStorage) migrateHash(u *model.User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		log.WithError(err).WithField("user", u.Username).Warn("could not re-hash password")
		return
	}
	from := u.PasswordScheme
	if from == "" {
		from = passwords.DetectScheme(u.PasswordHash)
	}
	err = s.db.Model(&model.User{}).Where("id = ?", u.ID).Updates(
		map[string]any{
			"password_hash":   newHash,
			"password_scheme": passwords.SchemeV1,
		},
	).Error
	if err != nil {
		log.WithError(err).WithField("user", u.Username).Warn("could not store re-hashed password")
		return
	}
	u.PasswordScheme = passwords.SchemeV1
	log.WithFields(log.Fields{"user": u.Username, "from": from}).Info("migrated password hash")
}

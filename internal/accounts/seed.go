package accounts

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// DefaultPassword is the password of seeded accounts; it must be changed on
// first login
const DefaultPassword = "password"

// DefaultAccounts are created by Seed
var DefaultAccounts = []model.NewUser{
	{
		Username: "admin",
		Name:     "Super Administrator",
		Role:     model.RoleSuperAdmin,
	},
	{
		Username: "staff",
		Name:     "Content Staff",
		Role:     model.RoleAdmin,
	},
}

// Seed creates the default accounts. Existing default accounts get their
// password reset. All of them must change the password on the next login.
func Seed(users model.UsersStore) ([]*model.User, error) {
	seeded := make([]*model.User, 0, len(DefaultAccounts))
	for _, acc := range DefaultAccounts {
		acc.Password = DefaultPassword
		acc.MustChangePassword = true
		existing, err := users.GetByUsername(acc.Username)
		if err != nil {
			var notFound model.NotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
			u, err := users.Create(acc)
			if err != nil {
				return nil, err
			}
			log.WithField("user", u.Username).Info("created default account")
			seeded = append(seeded, u)
			continue
		}
		u, err := users.SetPassword(existing.ID, acc.Password, true)
		if err != nil {
			return nil, err
		}
		log.WithField("user", u.Username).Info("reset default account")
		seeded = append(seeded, u)
	}
	return seeded, nil
}

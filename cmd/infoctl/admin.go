package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/saraphi-hospital/infocms/client"
	"github.com/saraphi-hospital/infocms/cmd/infocms/config"
	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// cliActor is recorded as the actor of audit entries written by infoctl
var cliActor = tokens.Identity{Username: "infoctl"}

type admin struct {
	users model.UsersStore
	svc   *accounts.Service
	close func()
}

// openAdmin loads the server config and opens the database. The login
// lockout is only reachable when it is kept in redis; a badger store belongs
// to the running server.
func openAdmin() (*admin, error) {
	conf, err := config.Read(configFile)
	if err != nil {
		return nil, err
	}
	backs, err := config.LoadStorageBackends(conf.Storage, conf.Auth.PasswordHashing)
	if err != nil {
		return nil, err
	}
	closeFn := func() {}
	var lockout *throttle.AccountLockout
	if conf.Throttle.RedisAddr != "" {
		store, err := throttle.Open(conf.Throttle.Config())
		if err != nil {
			return nil, err
		}
		closeFn = func() { _ = store.Close() }
		lockout = throttle.NewAccountLockout(store, conf.Auth.Lockout.LockoutConfig())
	}
	issuer, err := tokens.NewIssuer(conf.Auth.Secret, conf.Auth.TokenLifetime.Duration())
	if err != nil {
		closeFn()
		return nil, err
	}
	return &admin{
		users: backs.Users,
		svc:   accounts.NewService(backs.Users, issuer, lockout, audit.NewRecorder(backs.Audit, nil)),
		close: closeFn,
	}, nil
}

// withAdmin wraps a command body that needs database access
func withAdmin(run func(cmd *cobra.Command, args []string, a *admin) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openAdmin()
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args, a)
	}
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default accounts or reset their passwords",
	Long: fmt.Sprintf(
		`Create the default accounts admin (SUPER_ADMIN) and staff (ADMIN).
Existing default accounts get their password reset. All of them get the
password '%s' and must change it on the next login.`, accounts.DefaultPassword,
	),
	Args: cobra.NoArgs,
	RunE: withAdmin(
		func(cmd *cobra.Command, _ []string, a *admin) error {
			users, err := accounts.Seed(a.users)
			if err != nil {
				return err
			}
			for _, u := range users {
				cmd.Printf("%s (%s): password set, must be changed on first login\n", u.Username, u.Role)
			}
			return nil
		},
	),
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts directly in the database",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Args:  cobra.NoArgs,
	RunE: withAdmin(
		func(cmd *cobra.Command, _ []string, a *admin) error {
			users, err := a.users.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tNAME\tROLE\tMUST CHANGE PASSWORD")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", u.Username, u.Name, u.Role, u.MustChangePassword)
			}
			return w.Flush()
		},
	),
}

var (
	createName string
	createRole string
)

var userCreateCmd = &cobra.Command{
	Use:     "create <username>",
	Short:   "Create a user that must change the password on first login",
	Example: "infoctl user create editor1 --name 'Editor' --role ADMIN",
	Args:    cobra.ExactArgs(1),
	RunE: withAdmin(
		func(cmd *cobra.Command, args []string, a *admin) error {
			role := model.Role(createRole)
			if !role.Valid() {
				return errors.Errorf("invalid role '%s'", createRole)
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			pw, confirm, err := p.newPassword()
			if err != nil {
				return err
			}
			if err = client.ValidateNewPassword(pw, confirm); err != nil {
				return err
			}
			u, err := a.svc.CreateUser(
				cliActor, accounts.CreateUserRequest{
					Username: args[0],
					Password: pw,
					Name:     createName,
					Role:     role,
				},
			)
			if err != nil {
				return err
			}
			cmd.Printf("created %s (%s)\n", u.Username, u.Role)
			return nil
		},
	),
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "Set a new password that must be changed on the next login",
	Args:  cobra.ExactArgs(1),
	RunE: withAdmin(
		func(cmd *cobra.Command, args []string, a *admin) error {
			u, err := a.users.GetByUsername(args[0])
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			pw, confirm, err := p.newPassword()
			if err != nil {
				return err
			}
			if err = client.ValidateNewPassword(pw, confirm); err != nil {
				return err
			}
			if err = a.svc.ResetPassword(cliActor, u.ID, pw); err != nil {
				return err
			}
			cmd.Printf("password of %s reset, must be changed on next login\n", u.Username)
			return nil
		},
	),
}

func init() {
	userCreateCmd.Flags().StringVar(&createName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&createRole, "role", string(model.RoleAdmin), "ADMIN or SUPER_ADMIN")
	userCmd.AddCommand(userListCmd, userCreateCmd, userResetPasswordCmd)
	rootCmd.AddCommand(seedCmd, userCmd)
}

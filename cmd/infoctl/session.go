package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saraphi-hospital/infocms/client"
)

// sessionState is what infoctl remembers between invocations
type sessionState struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token"`
}

func loadSession(path string) (*sessionState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, client.ErrNotLoggedIn
		}
		return nil, errors.WithStack(err)
	}
	var s sessionState
	if err = yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "could not parse session file '%s'", path)
	}
	if s.Token == "" {
		return nil, client.ErrNotLoggedIn
	}
	return &s, nil
}

func saveSession(path string, s sessionState) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, data, 0o600))
}

// sessionClient returns a client for the stored session. The server of the
// session wins unless --server was given explicitly.
func sessionClient(cmd *cobra.Command) (*client.Client, error) {
	s, err := loadSession(sessionFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("server") || s.Server == "" {
		s.Server = serverURL
	}
	return client.New(s.Server, client.WithToken(s.Token)), nil
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in to the server and keep the session",
	Long: `Sign in to the server and keep the session in the session file.

After 5 failed attempts further attempts are refused for 30 seconds. An empty
password aborts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		var username string
		if len(args) > 0 {
			username = args[0]
		} else {
			var err error
			if username, err = p.line("Username: "); err != nil {
				return err
			}
		}
		c := client.New(serverURL)
		for {
			if wait, ok := c.Throttle().Allow(); !ok {
				cmd.Println((&client.LockedOutError{Remaining: wait}).Error())
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(wait):
				}
				continue
			}
			pw, err := p.password("Password: ")
			if err != nil {
				return err
			}
			if pw == "" {
				return errors.New("login aborted")
			}
			session, err := c.Login(cmd.Context(), username, pw)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
					cmd.Println(apiErr.Message)
					continue
				}
				return err
			}
			if err = saveSession(sessionFile, sessionState{Server: serverURL, Token: c.Token()}); err != nil {
				return err
			}
			cmd.Printf("logged in as %s (%s)\n", session.User.Username, session.User.Role)
			if session.MustChangePassword {
				cmd.Println("You must change your password before continuing; run 'infoctl passwd'")
			}
			return nil
		}
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		me, err := c.Me(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("%s (%s) %s\n", me.User.Username, me.User.Role, me.User.Name)
		if me.MustChangePassword {
			cmd.Println("password change required")
		}
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the password of the signed in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		me, err := c.Me(cmd.Context())
		if err != nil {
			return err
		}
		p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		var current string
		if !me.MustChangePassword {
			if current, err = p.password("Current password: "); err != nil {
				return err
			}
		}
		pw, confirm, err := p.newPassword()
		if err != nil {
			return err
		}
		if err = c.ChangePassword(cmd.Context(), current, pw, confirm); err != nil {
			return err
		}
		cmd.Println("Password changed successfully")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			if errors.Is(err, client.ErrNotLoggedIn) {
				return nil
			}
			return err
		}
		logoutErr := c.Logout(cmd.Context())
		if err = os.Remove(sessionFile); err != nil && !os.IsNotExist(err) {
			return errors.WithStack(err)
		}
		if logoutErr != nil {
			return logoutErr
		}
		cmd.Println("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, whoamiCmd, passwdCmd, logoutCmd)
}


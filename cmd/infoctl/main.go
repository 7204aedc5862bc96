package main

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "infoctl",
	Short: "infoctl can help you manage your infocms installation",
	Long: `infoctl can help you manage your infocms installation.

The seed and user commands work directly on the database configured in the
server config. The login, whoami, passwd and logout commands talk to a
running server.`,
	SilenceUsage: true,
}

var (
	configFile  string
	serverURL   string
	sessionFile string
)

const defaultServerURL = "http://localhost:3000"

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".infoctl-session"
	}
	return filepath.Join(dir, "infocms", "session.yaml")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "c", "", "the server config file to use for database commands",
	)
	rootCmd.PersistentFlags().StringVarP(
		&serverURL, "server", "s", defaultServerURL, "base url of the infocms server",
	)
	rootCmd.PersistentFlags().StringVar(
		&sessionFile, "session", defaultSessionFile(), "file the session token is kept in",
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Debug(err)
		os.Exit(1)
	}
}

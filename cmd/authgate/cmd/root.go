// Package cmd provides the CLI commands for authgate.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/securevibes/authgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "authgate - SecureVibes API session client",
	Long: `authgate keeps a SecureVibes API session on this machine.

It signs in once, persists the session, and attaches the bearer token to
every request it sends. When the server rejects the token with 401 the
session is cleared and you are asked to sign in again.

Quick start:
  1. Run: authgate login -u alice
  2. Run: authgate request GET /scans

Configuration:
  Config is loaded from authgate.yaml in the current directory,
  $HOME/.authgate/, or /etc/authgate/.

  Environment variables can override config values with the AUTHGATE_ prefix.
  Example: AUTHGATE_API_BASE_URL=https://vibes.example/api/v1

Commands:
  login       Sign in and store the session
  logout      Clear the stored session
  whoami      Show the signed-in user
  request     Send an authenticated API request
  health      Check that the API server is reachable
  config      Print the effective configuration
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./authgate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

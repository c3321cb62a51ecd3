package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API server is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	status, err := a.client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.client.BaseURL(), status.Status)
	return nil
}

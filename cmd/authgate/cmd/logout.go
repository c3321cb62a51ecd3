package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Long: `Clear the stored session. The token is removed from disk; the server is
not contacted. Logging out when no one is signed in is not an error.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	wasSignedIn := a.store.Current().IsAuthenticated
	a.auth.SignOut()

	if wasSignedIn {
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
	}
	return nil
}

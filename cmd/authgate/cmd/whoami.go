package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/securevibes/authgate/internal/service"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the signed-in user and when the token expires. The expiry is read
from the token itself; the server may still reject it earlier.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	id, err := a.auth.WhoAmI()
	if errors.Is(err, service.ErrNotSignedIn) {
		return errors.New("not logged in; run 'authgate login'")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:     %s\n", id.User.Username)
	fmt.Fprintf(out, "ID:       %s\n", id.User.ID)
	if id.User.Email != "" {
		fmt.Fprintf(out, "Email:    %s\n", id.User.Email)
	}
	if id.User.Role != "" {
		fmt.Fprintf(out, "Role:     %s\n", id.User.Role)
	}
	switch {
	case id.ExpiresAt.IsZero():
		fmt.Fprintln(out, "Expires:  unknown")
	case id.Expired:
		fmt.Fprintf(out, "Expires:  %s (expired)\n", id.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(out, "Expires:  %s\n", id.ExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Token:    %s\n", id.TokenFingerprint)
	return nil
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/securevibes/authgate/internal/adapter/outbound/api"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in to the SecureVibes API and store the session.

The password is read from the first line of stdin unless --password is given.
Passing it on the command line exposes it to other users of the machine.

Examples:
  authgate login -u alice
  echo "$PASSWORD" | authgate login -u alice`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (default: read from stdin)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	username := loginUsername
	if username == "" {
		return errors.New("--username is required")
	}

	password := loginPassword
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err = readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	sess, err := a.auth.SignIn(cmd.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			return errors.New("login failed: invalid username or password")
		case errors.Is(err, api.ErrServerUnreachable):
			return fmt.Errorf("login failed: cannot reach %s", a.client.BaseURL())
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
	return nil
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/securevibes/authgate/internal/adapter/outbound/api"
)

var requestData string

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an authenticated API request",
	Long: `Send a request to the API with the stored session's bearer token and
print the response data as JSON. PATH is relative to api.base_url.

A 401 response clears the stored session.

Examples:
  authgate request GET /scans
  authgate request PATCH /scans/42/findings/7/status --data '{"status":"resolved"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

func init() {
	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	path := args[1]

	var body any
	if requestData != "" {
		if !json.Valid([]byte(requestData)) {
			return errors.New("--data must be valid JSON")
		}
		body = json.RawMessage(requestData)
	}

	a, err := newApp(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	if !a.store.Current().IsAuthenticated {
		a.logger.Warn("sending request without a session")
	}

	var data json.RawMessage
	if err := a.client.Do(cmd.Context(), method, path, body, &data); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return fmt.Errorf("request rejected: %w", err)
		}
		return err
	}

	if len(data) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(data)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check leavelens server health",
		Long: `Check the health status of the leavelens HTTP server.

Examples:
  # Check health
  leavectl health

  # Check health on a different server
  leavectl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().health(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: Failed to reach %s: %v\n", opts.serverURL, err)
				return err
			}
			resp["server"] = opts.serverURL
			return writeOutput(cmd.OutOrStdout(), opts.output, resp)
		},
	}
}

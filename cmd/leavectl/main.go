// Package main implements the leavectl CLI for the leavelens HTTP server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version information
var version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	serverURL string
	output    string
	timeout   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "leavectl",
		Short: "CLI for leavelens HTTP server operations",
		Long: `leavectl is a command-line interface for the leavelens analysis server.
It uploads scanned leave letters for extraction, submits batches for
similarity and anomaly analysis, and checks server health.`,
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (want json or yaml)", opts.output)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "http://localhost:5001", "leavelens server URL")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputJSON, "output format: json or yaml")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "per-request timeout")

	root.AddCommand(newHealthCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newProcessCmd(opts))
	return root
}

func (o *options) client() *apiClient {
	return newAPIClient(o.serverURL, o.timeout)
}

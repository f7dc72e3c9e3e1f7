package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a batch of leave letters",
		Long: `Submit a batch of extracted leave letters for categorisation and
anomaly detection.

The input is a JSON array of letters or an object with a "leave_letters"
array, as returned by "leavectl process". Each letter needs a "reason"
field; "student_name", "roll_number" and "date" are optional.

Examples:
  # Analyze a file
  leavectl analyze letters.json

  # Analyze from stdin as YAML
  cat letters.json | leavectl analyze - -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if len(args) == 0 || args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read from stdin: %w", err)
				}
			} else {
				content, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read file %s: %w", args[0], err)
				}
			}

			letters, err := parseLetters(content)
			if err != nil {
				return err
			}
			report, err := opts.client().analyze(cmd.Context(), letters)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, report)
		},
	}
}

// parseLetters accepts a JSON array of letters or {"leave_letters": [...]}.
func parseLetters(content []byte) ([]json.RawMessage, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, errors.New("no input to analyze")
	}

	var letters []json.RawMessage
	switch content[0] {
	case '[':
		if err := json.Unmarshal(content, &letters); err != nil {
			return nil, fmt.Errorf("failed to parse letters: %w", err)
		}
	case '{':
		var wrapped struct {
			LeaveLetters []json.RawMessage `json:"leave_letters"`
		}
		if err := json.Unmarshal(content, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse letters: %w", err)
		}
		if wrapped.LeaveLetters == nil {
			return nil, errors.New(`input object has no "leave_letters" array`)
		}
		letters = wrapped.LeaveLetters
	default:
		return nil, errors.New(`input must be a JSON array or an object with "leave_letters"`)
	}

	if len(letters) == 0 {
		return nil, errors.New("no leave letters in input")
	}
	return letters, nil
}

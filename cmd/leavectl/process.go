package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// processResult is the outcome for one uploaded file.
type processResult struct {
	File    string         `json:"file" yaml:"file"`
	Success bool           `json:"success" yaml:"success"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	RawText string         `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// processOutput is printed when --analyze chains the extracted letters into
// a batch analysis.
type processOutput struct {
	Letters  []processResult `json:"letters" yaml:"letters"`
	Analysis map[string]any  `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

func newProcessCmd(opts *options) *cobra.Command {
	var (
		concurrency int
		analyze     bool
	)
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Extract leave records from scanned letters",
		Long: `Upload scanned leave letters (PDF, PNG, JPEG or GIF) for text recognition
and field extraction. Files are uploaded concurrently.

With --analyze, the extracted letters are submitted as one batch for
analysis and the report is printed alongside the per-file results.

Examples:
  # Extract one letter
  leavectl process scan.png

  # Extract a folder and analyze the batch
  leavectl process --analyze --concurrency 8 scans/*.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
			}
			client := opts.client()
			results := processFiles(cmd.Context(), client, args, concurrency)

			out := processOutput{Letters: results}
			var failed int
			var letters []json.RawMessage
			for _, r := range results {
				if !r.Success {
					failed++
					continue
				}
				raw, err := json.Marshal(r.Data)
				if err != nil {
					return fmt.Errorf("failed to encode letter from %s: %w", r.File, err)
				}
				letters = append(letters, raw)
			}

			if analyze && len(letters) > 0 {
				report, err := client.analyze(cmd.Context(), letters)
				if err != nil {
					_ = writeOutput(cmd.OutOrStdout(), opts.output, out)
					return fmt.Errorf("analysis failed: %w", err)
				}
				out.Analysis = report
			}

			if analyze {
				if err := writeOutput(cmd.OutOrStdout(), opts.output, out); err != nil {
					return err
				}
			} else if err := writeOutput(cmd.OutOrStdout(), opts.output, out.Letters); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d letters failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "maximum concurrent uploads")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "analyze the extracted letters as one batch")
	return cmd
}

// processFiles uploads files with at most limit requests in flight. Results
// keep the order of files; per-file failures are recorded, not returned.
func processFiles(ctx context.Context, client *apiClient, files []string, limit int) []processResult {
	results := make([]processResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			results[i] = processFile(ctx, client, file)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func processFile(ctx context.Context, client *apiClient, file string) processResult {
	res := processResult{File: file}
	payload, err := encodeFile(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp, err := client.process(ctx, payload)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	if data, ok := resp["data"].(map[string]any); ok {
		res.Data = data
	}
	res.RawText, _ = resp["raw_text"].(string)
	return res
}

// encodeFile reads file as a base64 data URL.
func encodeFile(file string) (string, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", file, err)
	}
	if len(content) == 0 {
		return "", fmt.Errorf("file %s is empty", file)
	}
	return fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(content), base64.StdEncoding.EncodeToString(content)), nil
}

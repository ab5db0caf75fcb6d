package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/ctc"
	"github.com/spf13/cobra"
)

func (c *CLI) newDecodeCommand() *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "decode <dataset>",
		Short: "Greedy-decode each sample in a dataset file",
		Args:  cobra.ExactArgs(1),
		Example: `  ctc decode batch.json
  ctc decode batch.json --path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, blank, err := ctc.LoadBatch(args[0])
			if err != nil {
				return err
			}

			type decodeOutput struct {
				Labels []int `json:"labels"`
				Path   []int `json:"path,omitempty"`
			}

			start := time.Now()
			results := make([]decodeOutput, len(batch.InputLengths))
			for b := range batch.InputLengths {
				decoded := ctc.DecodeGreedy(batch.Sample(b), blank)
				results[b] = decodeOutput{Labels: decoded.Labels}
				if showPath {
					results[b].Path = decoded.Path
				}
			}
			slog.Debug("Decoding completed", "samples", len(results), "duration", time.Since(start))

			output, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPath, "path", false, "Include the raw argmax path per sample")
	return cmd
}

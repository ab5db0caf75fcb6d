package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/ctc"
	"github.com/spf13/cobra"
)

func (c *CLI) newLossCommand() *cobra.Command {
	var workers int
	var blank int

	cmd := &cobra.Command{
		Use:   "loss <dataset>",
		Short: "Compute the batch CTC loss for a dataset file",
		Args:  cobra.ExactArgs(1),
		Example: `  ctc loss batch.json
  ctc loss batch.json --workers 4
  ctc loss batch.json --blank 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, dsBlank, err := ctc.LoadBatch(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("blank") {
				blank = dsBlank
			}

			start := time.Now()
			result, err := ctc.ComputeLoss(batch, ctc.LossConfig{Blank: blank, Workers: workers})
			if err != nil {
				return err
			}
			slog.Debug("Loss computed",
				"samples", len(result.SampleLosses), "duration", time.Since(start))

			output, err := json.MarshalIndent(struct {
				Loss         float64   `json:"loss"`
				SampleLosses []float64 `json:"sample_losses"`
				Unalignable  []int     `json:"unalignable,omitempty"`
			}{result.Loss, result.SampleLosses, result.Unalignable}, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Max samples processed concurrently")
	cmd.Flags().IntVar(&blank, "blank", 0, "Blank symbol index (default: from dataset)")
	return cmd
}

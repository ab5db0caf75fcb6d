package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/happyhackingspace/ctc"
	"github.com/spf13/cobra"
)

func (c *CLI) newGradientCommand() *cobra.Command {
	var workers int
	var blank int
	var outPath string

	cmd := &cobra.Command{
		Use:   "gradient <dataset>",
		Short: "Compute the CTC loss gradient for a dataset file",
		Args:  cobra.ExactArgs(1),
		Example: `  ctc gradient batch.json
  ctc gradient batch.json --out grad.json
  ctc gradient batch.json --blank 0`,
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
			grad := result.Gradient()
			slog.Debug("Gradient computed",
				"samples", len(result.SampleLosses), "duration", time.Since(start))

			output, err := json.MarshalIndent(struct {
				Loss     float64       `json:"loss"`
				Gradient [][][]float64 `json:"gradient"`
			}{result.Loss, grad}, "", "  ")
			if err != nil {
				return fmt.Errorf("encode gradient: %w", err)
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, output, 0644); err != nil {
					return fmt.Errorf("write gradient: %w", err)
				}
				slog.Info("Gradient saved", "path", outPath)
				return nil
			}
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Max samples processed concurrently")
	cmd.Flags().IntVar(&blank, "blank", 0, "Blank symbol index (default: from dataset)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write gradient JSON to a file instead of stdout")
	return cmd
}

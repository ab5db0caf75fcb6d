package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/ctc"
	"github.com/spf13/cobra"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:     "evaluate <dataset>",
		Short:   "Report loss and greedy-decode error rates for a dataset file",
		Args:    cobra.ExactArgs(1),
		Example: `  ctc evaluate batch.json --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Evaluating", "dataset", args[0], "workers", workers)
			start := time.Now()
			result, err := ctc.Evaluate(args[0], &ctc.EvalConfig{Workers: workers})
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			fmt.Printf("Mean loss: %.6f\n", result.Loss)
			if result.TokenTotal > 0 {
				fmt.Printf("Token error rate: %.1f%% (%d/%d tokens)\n",
					result.TokenErrorRate*100, result.TokenErrors, result.TokenTotal)
			}
			if result.SequenceTotal > 0 {
				fmt.Printf("Sequence accuracy: %.1f%% (%d/%d samples)\n",
					result.SequenceAccuracy*100, result.SequenceCorrect, result.SequenceTotal)
			}
			if len(result.Unalignable) > 0 {
				fmt.Printf("Unalignable samples: %v\n", result.Unalignable)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Max samples processed concurrently")
	return cmd
}

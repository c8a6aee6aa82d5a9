package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
)

func newDistanceCommand(opts *rootOptions) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "distance <a.json> <b.json>",
		Short: "Compare two embeddings stored as JSON arrays",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 {
				v, err := opts.tuning()
				if err != nil {
					return err
				}
				threshold = v.CompareThreshold
			}

			a, err := readEmbedding(args[0])
			if err != nil {
				return err
			}
			b, err := readEmbedding(args[1])
			if err != nil {
				return err
			}

			res, err := service.NewComparer(threshold).Compare(a, b)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "distance=%.4f match=%t similarity=%.1f%% threshold=%.2f\n",
				res.Distance, res.IsMatch, res.Similarity, res.Threshold)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Match threshold, lower is stricter (default: compare threshold)")

	return cmd
}

func readEmbedding(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read embedding: %w", err)
	}

	var emb []float64
	if err := json.Unmarshal(data, &emb); err != nil {
		return nil, fmt.Errorf("parse embedding %s: %w", path, err)
	}
	return emb, nil
}

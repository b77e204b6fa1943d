package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/warden/internal/heuristic"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Write annotation candidates for every heuristic match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			r, closeInput, err := a.input.open(ctx, cmd.InOrStdin(), a.logger)
			if err != nil {
				return err
			}
			defer closeInput()

			cands, stats, err := heuristic.NewScanner(catalog, limit, heuristic.ScanHooks{}).
				Scan(ctx, r, heuristic.NewContext(0))
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if cands == nil {
				cands = []heuristic.Candidate{}
			}
			if err := writeJSONFile(output, cands); err != nil {
				return err
			}
			a.logger.Info(ctx, "scan complete", "records", stats.Records, "candidates", len(cands), "output", output)

			fmt.Fprintf(a.out, "Generated %d candidate annotations.\n", len(cands))
			for _, name := range firstSeen(cands) {
				fmt.Fprintf(a.out, "  %s: %d\n", name, stats.PerHeuristic[name])
			}
			fmt.Fprintf(a.out, "Saved candidates to %s\n", output)
			return nil
		},
	}
	a.input.register(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit-per-heuristic", heuristic.DefaultLimitPerRule, "maximum candidates emitted per heuristic (0 = unlimited)")
	cmd.Flags().StringVar(&output, "output", "training_candidates.json", "where to write the candidate annotations")
	return cmd
}

// firstSeen returns heuristic names in order of their first candidate.
func firstSeen(cands []heuristic.Candidate) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cands {
		if !seen[c.Heuristic] {
			seen[c.Heuristic] = true
			out = append(out, c.Heuristic)
		}
	}
	return out
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/warden/internal/heuristic"
	"github.com/linnemanlabs/warden/internal/response"
)

func newRespondCmd(a *app) *cobra.Command {
	var (
		limit      int
		output     string
		actionsMap string
	)
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Build response-action plans for detected attack heuristics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			actions := response.DefaultActions()
			if actionsMap != "" {
				var err error
				if actions, err = response.LoadActionMap(actionsMap); err != nil {
					return err
				}
			}
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			r, closeInput, err := a.input.open(ctx, cmd.InOrStdin(), a.logger)
			if err != nil {
				return err
			}
			defer closeInput()

			plans, stats, err := response.NewResponder(catalog, limit, actions, heuristic.ScanHooks{}).
				Respond(ctx, r, heuristic.NewContext(0))
			if err != nil {
				return fmt.Errorf("respond: %w", err)
			}
			a.logger.Info(ctx, "response plans built", "records", stats.Records, "plans", len(plans))

			fmt.Fprintf(a.out, "Detected %d actionable events.\n", len(plans))
			for _, p := range plans {
				fmt.Fprintf(a.out, "- %s (%s) on %s: %d suggested action(s)\n", p.Heuristic, p.Severity, p.Host, len(p.Actions))
			}

			if output != "" {
				if err := writeJSONFile(output, plans); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved plans to %s\n", output)
			}
			return nil
		},
	}
	a.input.register(cmd.Flags())
	cmd.Flags().IntVar(&limit, "limit-per-heuristic", 0, "maximum plans emitted per heuristic (0 = unlimited)")
	cmd.Flags().StringVar(&output, "output", "", "optional JSON file for the action plans")
	cmd.Flags().StringVar(&actionsMap, "actions", "", "JSON file mapping severity labels to action lists")
	return cmd
}

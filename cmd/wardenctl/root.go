package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/heuristic"
)

const appName = "wardenctl"

// app carries state shared by every subcommand.
type app struct {
	out    io.Writer
	logCfg log.Config
	logger log.Logger

	catalogPath string
	input       inputOptions
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: log.Nop()}

	root := &cobra.Command{
		Use:   appName,
		Short: "Offline SIEM triage tooling",
		Long: `wardenctl scans Wazuh event exports for detection candidates, builds
response-action plans for matched events, and runs the rule-based
assessment and planning chain over alert files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}

	// go-core log flags are registered on a std FlagSet and bridged into pflag
	gofs := flag.NewFlagSet(appName, flag.ContinueOnError)
	a.logCfg.RegisterFlags(gofs)
	root.PersistentFlags().AddGoFlagSet(gofs)
	root.PersistentFlags().StringVar(&a.catalogPath, "catalog", "", "heuristic catalog YAML file (empty = built-in catalog)")

	root.AddCommand(newScanCmd(a), newRespondCmd(a), newTriageCmd(a))
	return root
}

func (a *app) init(ctx context.Context) error {
	if err := a.logCfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	lg, err := log.New(a.logCfg.ToOptions(appName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	a.logger = lg
	a.logger.Info(ctx, "starting", "app", appName)
	return nil
}

func (a *app) catalog() (*heuristic.Catalog, error) {
	if a.catalogPath == "" {
		return heuristic.Default(), nil
	}
	c, err := heuristic.LoadCatalog(a.catalogPath, heuristic.BuiltinMatchers())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// writeJSONFile writes v as indented JSON, creating parent directories.
func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/triage"
	"github.com/linnemanlabs/warden/internal/triage/memstore"
)

type triageOutput struct {
	Fingerprint string               `json:"fingerprint"`
	Result      *triage.TriageResult `json:"result"`
}

func newTriageCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "triage FILE",
		Short: "Score and plan alerts from a JSON file with the rule chain",
		Long: `triage reads one alert object, a JSON array of alerts, or one alert per
line, then runs the rule assessor and rule planner over each. "-" reads
stdin. Nothing is sent to an LLM backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open alerts: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			alerts, err := readAlerts(in)
			if err != nil {
				return err
			}

			svc := triage.NewService(triage.Options{
				Store:  memstore.New(max(len(alerts), 1)),
				Logger: a.logger,
			})

			out := make([]triageOutput, 0, len(alerts))
			for i, al := range alerts {
				res, err := svc.Triage(ctx, al)
				if err != nil {
					return fmt.Errorf("alert %d: %w", i, err)
				}
				out = append(out, triageOutput{Fingerprint: res.Plan.Fingerprint, Result: res})
			}

			if output != "" {
				if err := writeJSONFile(output, out); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Triaged %d alerts, saved to %s\n", len(out), output)
				return nil
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "write results to this JSON file instead of stdout")
	return cmd
}

// readAlerts accepts a single object, an array, or concatenated objects.
func readAlerts(r io.Reader) ([]alert.Alert, error) {
	br := bufio.NewReader(r)
	head, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no alerts in input")
	}
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}

	dec := json.NewDecoder(br)
	if head == '[' {
		var alerts []alert.Alert
		if err := dec.Decode(&alerts); err != nil {
			return nil, fmt.Errorf("decode alerts: %w", err)
		}
		for i, al := range alerts {
			if al == nil {
				return nil, fmt.Errorf("alert %d: not an object", i)
			}
		}
		return alerts, nil
	}

	var alerts []alert.Alert
	for {
		var al alert.Alert
		err := dec.Decode(&al)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode alert %d: %w", len(alerts), err)
		}
		if al == nil {
			return nil, fmt.Errorf("alert %d: not an object", len(alerts))
		}
		alerts = append(alerts, al)
	}
	return alerts, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

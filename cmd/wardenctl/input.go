package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/record"
	"github.com/linnemanlabs/warden/internal/source/loki"
)

// inputOptions selects where records come from: a CSV export, or a Loki
// query whose lines are Wazuh alert JSON objects.
type inputOptions struct {
	dataset string

	lokiURL    string
	lokiTenant string
	lokiQuery  string
	since      time.Duration
	lokiLimit  int
}

func (o *inputOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.dataset, "dataset", "data/dataset.csv", `CSV export with id,timestamp,rule,agent,full_log,location columns ("-" reads stdin)`)
	fs.StringVar(&o.lokiURL, "loki-url", "", "read records from this Loki endpoint instead of --dataset")
	fs.StringVar(&o.lokiTenant, "loki-tenant-id", "", "Loki tenant ID sent as X-Scope-OrgID")
	fs.StringVar(&o.lokiQuery, "loki-query", `{job="wazuh"}`, "LogQL selector for Wazuh alert lines")
	fs.DurationVar(&o.since, "since", loki.DefaultRange, "how far back the Loki query reaches (capped at 24h)")
	fs.IntVar(&o.lokiLimit, "loki-limit", loki.DefaultLimit, "maximum Loki lines fetched (capped at 5000)")
}

// open returns a record reader and a function releasing its resources.
func (o *inputOptions) open(ctx context.Context, stdin io.Reader, logger log.Logger) (record.Reader, func(), error) {
	if o.lokiURL != "" {
		src := loki.New(o.lokiURL, o.lokiTenant)
		res, err := src.Fetch(ctx, loki.Query{
			Expr:  o.lokiQuery,
			Start: time.Now().Add(-o.since),
			Limit: o.lokiLimit,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("loki query: %w", err)
		}
		logger.Info(ctx, "fetched records from loki",
			"streams", res.Streams,
			"lines", res.Lines,
			"records", len(res.Records),
			"skipped", res.Skipped,
			"truncated", res.Truncated,
		)
		return res.Reader(), func() {}, nil
	}

	if o.dataset == "-" {
		r, err := record.NewCSVReader(stdin)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	}

	f, err := os.Open(o.dataset)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset: %w", err)
	}
	r, err := record.NewCSVReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return r, func() { _ = f.Close() }, nil
}

// Package loki reads Wazuh alert records from a Loki query_range result.
package loki

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/linnemanlabs/warden/internal/record"
)

const (
	DefaultLimit = 1000
	MaxLimit     = 5000
	DefaultRange = time.Hour
	MaxRange     = 24 * time.Hour
)

// Query selects log lines. Zero Start/End default to the last DefaultRange.
type Query struct {
	Expr  string
	Start time.Time
	End   time.Time
	Limit int
}

// Source queries a single Loki endpoint.
type Source struct {
	endpoint   string
	tenantID   string
	httpClient *http.Client
	now        func() time.Time
}

// New returns a Source for endpoint. tenantID is sent as X-Scope-OrgID
// when non-empty.
func New(endpoint, tenantID string) *Source {
	return &Source{
		endpoint:   endpoint,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Result is the outcome of a Fetch.
type Result struct {
	Records   []*record.Record
	Streams   int
	Lines     int
	Skipped   int
	Truncated bool
}

// Reader returns a record.Reader over the fetched records.
func (r *Result) Reader() record.Reader {
	return record.NewSliceReader(r.Records)
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type lokiResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string       `json:"resultType"`
		Result     []lokiStream `json:"result"`
	} `json:"data"`
}

type entry struct {
	ts   int64
	line string
}

// normalize applies defaults and caps to q.
func (s *Source) normalize(q Query) (Query, error) {
	if q.Expr == "" {
		return q, errors.New("query is required")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.End.IsZero() {
		q.End = s.now().UTC()
	}
	if q.Start.IsZero() {
		q.Start = q.End.Add(-DefaultRange)
	}
	if !q.Start.Before(q.End) {
		return q, fmt.Errorf("start %s must be before end %s", q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	}
	if q.End.Sub(q.Start) > MaxRange {
		q.Start = q.End.Add(-MaxRange)
	}
	return q, nil
}

// Fetch runs q and converts every line that is a Wazuh alert JSON object
// into a record. Lines from all streams are merged into timestamp order so
// correlation sees events as they happened. Other lines are counted in
// Skipped.
func (s *Source) Fetch(ctx context.Context, q Query) (*Result, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, "loki/api/v1/query_range")

	v := u.Query()
	v.Set("query", q.Expr)
	v.Set("start", strconv.FormatInt(q.Start.UnixNano(), 10))
	v.Set("end", strconv.FormatInt(q.End.UnixNano(), 10))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("direction", "forward")
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.tenantID != "" {
		req.Header.Set("X-Scope-OrgID", s.tenantID)
	}

	resp, err := s.httpClient.Do(req) //nolint:gosec // G704: endpoint is set at construction from config
	if err != nil {
		return nil, fmt.Errorf("loki query failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loki returned %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var lr lokiResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("decode loki response: %w", err)
	}
	if lr.Status != "success" {
		return nil, fmt.Errorf("loki query status %q", lr.Status)
	}
	if lr.Data.ResultType != "" && lr.Data.ResultType != "streams" {
		return nil, fmt.Errorf("loki result type %q, want streams", lr.Data.ResultType)
	}

	entries := mergeStreams(lr.Data.Result)
	res := &Result{
		Streams:   len(lr.Data.Result),
		Lines:     len(entries),
		Truncated: len(entries) >= q.Limit,
	}
	for _, e := range entries {
		rec, ok := record.FromWazuhAlert(e.line)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// mergeStreams flattens every stream and orders the lines by timestamp.
// Entries with unparsable timestamps keep their relative order at the end.
func mergeStreams(streams []lokiStream) []entry {
	var out []entry
	for _, st := range streams {
		for _, v := range st.Values {
			if len(v) < 2 {
				continue
			}
			ts, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				ts = 1<<63 - 1
			}
			out = append(out, entry{ts: ts, line: v[1]})
		}
	}
	slices.SortStableFunc(out, func(a, b entry) int { return cmp.Compare(a.ts, b.ts) })
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

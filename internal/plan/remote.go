package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
)

// RemoteConfig configures a Remote planner.
type RemoteConfig struct {
	Endpoint     string
	APIKey       string
	APIKeyHeader string
	APIKeyPrefix string
	Timeout      time.Duration
}

// Remote delegates planning to an HTTP planning service.
type Remote struct {
	endpoint string
	header   string
	value    string
	client   *http.Client
	now      func() time.Time
}

type planningOptions struct {
	Environment string `json:"environment"`
	DryRun      bool   `json:"dryRun"`
	NowUTC      string `json:"nowUtc"`
}

type remoteRequest struct {
	Alert      alert.Alert       `json:"alert"`
	Assessment assess.Assessment `json:"assessment"`
	Planning   planningOptions   `json:"planning"`
}

// NewRemote returns a Remote planner posting to <Endpoint>/v1/plan.
func NewRemote(c RemoteConfig) *Remote {
	header := c.APIKeyHeader
	if header == "" {
		header = "Authorization"
	}
	var value string
	if c.APIKey != "" {
		value = strings.TrimSpace(c.APIKeyPrefix + " " + c.APIKey)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Remote{
		endpoint: strings.TrimRight(c.Endpoint, "/"),
		header:   header,
		value:    value,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// Name implements Planner.
func (r *Remote) Name() string { return "remote" }

// Plan implements Planner. Transport, status, and decoding failures are
// reported as ErrNoResult.
func (r *Remote) Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*Plan, error) {
	env, ok := a.String("context.environment")
	if !ok {
		env = "unknown"
	}
	if a == nil {
		a = alert.Alert{}
	}
	body, err := json.Marshal(remoteRequest{
		Alert:      a,
		Assessment: as,
		Planning: planningOptions{
			Environment: env,
			NowUTC:      r.now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", ErrNoResult, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/plan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrNoResult, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.value != "" {
		req.Header.Set(r.header, r.value)
	}

	resp, err := r.client.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: remote planner: %w", ErrNoResult, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrNoResult, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: remote planner returned %d: %s", ErrNoResult, resp.StatusCode, truncate(string(respBody), 256))
	}

	doc := string(respBody)
	if p := gjson.Get(doc, "plan"); p.IsObject() {
		doc = p.Raw
	}
	return ParseJSON(doc)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

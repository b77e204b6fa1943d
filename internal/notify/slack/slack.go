// Package slack sends plan notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/plan"
	"github.com/linnemanlabs/warden/internal/triage"
)

const (
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends plan records to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Name implements triage.Notifier.
func (n *Notifier) Name() string { return "slack" }

// Send posts a plan record to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, rec *triage.PlanRecord) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(rec))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	n.logger.Info(ctx, "slack notification sent", "plan_id", rec.ID, "strategy", rec.Plan.Strategy)
	return nil
}

func buildMessage(r *triage.PlanRecord) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			actionsBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *triage.PlanRecord) map[string]any {
	text := fmt.Sprintf("%s %s: priority %d", priorityEmoji(r.Plan.Priority), r.Plan.Strategy, r.Plan.Priority)
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *triage.PlanRecord) map[string]any {
	env := r.Plan.Tags["environment"]
	if env == "" {
		env = "unknown"
	}
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %d", r.Assessment.Severity)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Confidence:* %.2f", r.Assessment.Confidence)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Environment:* %s", env)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Planner:* %s", r.PlanSource)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Actions:* %d", len(r.Plan.Actions))},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Rollbacks:* %d", len(r.Plan.RollbackActions))},
	}
	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func actionsBlock(r *triage.PlanRecord) map[string]any {
	var b strings.Builder
	b.WriteString("*Plan*\n")
	if r.Assessment.Hypothesis != "" {
		fmt.Fprintf(&b, "_%s_\n", r.Assessment.Hypothesis)
	}
	b.WriteString("\n")
	if len(r.Plan.Actions) == 0 {
		b.WriteString("_No actions._")
	}
	for i, a := range r.Plan.Actions {
		fmt.Fprintf(&b, "%d. `%s`%s\n", i+1, a.Type, formatParams(a))
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(strings.TrimRight(b.String(), "\n"), maxSectionLen),
		},
	}
}

func formatParams(a plan.Action) string {
	if len(a.Parameters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(a.Parameters))
	for k := range a.Parameters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+a.Parameters[k])
	}
	return " " + strings.Join(parts, " ")
}

func contextBlock(r *triage.PlanRecord) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("warden • plan %s • %s", r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}
	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func priorityEmoji(priority int) string {
	switch {
	case priority >= 80:
		return "\U0001f534" // red circle
	case priority >= 50:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

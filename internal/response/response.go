// Package response maps heuristic severities to recommended response
// actions and turns scan matches into per-event response plans.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/linnemanlabs/warden/internal/heuristic"
	"github.com/linnemanlabs/warden/internal/record"
)

// DefaultLabel is the bucket used for unknown severity labels.
const DefaultLabel = "default"

// ExcerptLen is the rune length of a response plan log excerpt.
const ExcerptLen = 400

// Actions maps lower-cased severity labels to ordered recommendations.
type Actions map[string][]string

// DefaultActions returns a fresh copy of the built-in action map.
func DefaultActions() Actions {
	return Actions{
		"critical": {
			"Isolate the affected host from the network (disable interfaces or remove from VPN).",
			"Notify SOC immediately and document the detection details.",
			"Capture volatile memory/log snapshots before the host is rebooted.",
		},
		"high": {
			"Block the source IP at the firewall or host-based firewall.",
			"Stage the host for forensic triage (collect disk image, eventlogs).",
			"Up the logging verbosity and monitor for follow-on activity.",
		},
		"medium": {
			"Correlate with other detections to confirm impact.",
			"Notify the owner/team and continue to monitor the host.",
		},
		"low": {
			"Log the event for record keeping and review during the next shift.",
			"Confirm whether the behavior is expected before escalating.",
		},
		"noise": {
			"Mark the detection as noise to reduce future alert volume.",
			"Tune the matching rule instead of escalating the incident.",
		},
		DefaultLabel: {
			"Document the detection and hand off to the analyst queue for investigation.",
		},
	}
}

// Normalize returns a copy of m with lower-cased keys and a guaranteed
// default bucket.
func Normalize(m map[string][]string) Actions {
	out := make(Actions, len(m)+1)
	for k, v := range m {
		out[strings.ToLower(k)] = slices.Clone(v)
	}
	if _, ok := out[DefaultLabel]; !ok {
		out[DefaultLabel] = []string{}
	}
	return out
}

// Lookup returns the actions for label, case-insensitively, falling back
// to the default bucket.
func (a Actions) Lookup(label string) []string {
	if acts, ok := a[strings.ToLower(label)]; ok {
		return acts
	}
	return a[DefaultLabel]
}

// Labels returns the configured severity labels in sorted order.
func (a Actions) Labels() []string {
	return slices.Sorted(maps.Keys(a))
}

// LoadActionMap reads a JSON object of label to action list from path.
// An empty path yields DefaultActions. Any other document shape is an error.
func LoadActionMap(path string) (Actions, error) {
	if path == "" {
		return DefaultActions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action map: %w", err)
	}
	return ParseActionMap(data)
}

// ParseActionMap decodes an action map document.
func ParseActionMap(data []byte) (Actions, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse action map: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, errors.New("action map must be a JSON object")
	}
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("action map values must be string arrays: %w", err)
	}
	return Normalize(m), nil
}

// Plan is the recommended response for one matched event.
type Plan struct {
	DatasetID       string   `json:"dataset_id"`
	Timestamp       string   `json:"timestamp"`
	Host            string   `json:"host"`
	IP              string   `json:"ip"`
	RuleID          string   `json:"rule_id"`
	RuleDescription string   `json:"rule_description"`
	LogExcerpt      string   `json:"log_excerpt"`
	Heuristic       string   `json:"heuristic"`
	DetectionGoal   string   `json:"detection_goal"`
	Severity        string   `json:"severity"`
	Actions         []string `json:"actions"`
}

// Responder scans records and emits a Plan per heuristic match.
type Responder struct {
	scanner *heuristic.Scanner
	actions Actions
}

// NewResponder returns a Responder. limit caps plans per heuristic, 0 is
// unlimited. A nil actions map uses DefaultActions.
func NewResponder(catalog *heuristic.Catalog, limit int, actions Actions, hooks heuristic.ScanHooks) *Responder {
	if actions == nil {
		actions = DefaultActions()
	}
	return &Responder{
		scanner: heuristic.NewScanner(catalog, limit, hooks),
		actions: actions,
	}
}

// Respond reads r to exhaustion and returns the plans in match order.
func (rs *Responder) Respond(ctx context.Context, r record.Reader, cctx *heuristic.Context) ([]Plan, heuristic.Stats, error) {
	out := []Plan{}
	stats, err := rs.scanner.Each(ctx, r, cctx, func(rec *record.Record, rule *heuristic.Rule) error {
		out = append(out, rs.Build(rec, rule))
		return nil
	})
	return out, stats, err
}

// Build projects one match into a Plan.
func (rs *Responder) Build(rec *record.Record, rule *heuristic.Rule) Plan {
	severity := rule.Severity
	if severity == "" {
		severity = DefaultLabel
	}
	return Plan{
		DatasetID:       rec.ID,
		Timestamp:       rec.Timestamp,
		Host:            hostOf(rec),
		IP:              rec.Agent.String("ip"),
		RuleID:          rec.Rule.String("id"),
		RuleDescription: rec.Rule.String("description"),
		LogExcerpt:      heuristic.Excerpt(rec.FullLog, ExcerptLen),
		Heuristic:       rule.Name,
		DetectionGoal:   rule.DetectionGoal,
		Severity:        severity,
		Actions:         rs.actions.Lookup(severity),
	}
}

// hostOf prefers the agent name, then its id. A non-JSON agent column is
// taken as the host name itself.
func hostOf(rec *record.Record) string {
	if !rec.Agent.Valid() {
		return rec.Agent.Raw()
	}
	if name := rec.Agent.String("name"); name != "" {
		return name
	}
	if id := rec.Agent.String("id"); id != "" {
		return id
	}
	return rec.Agent.Raw()
}

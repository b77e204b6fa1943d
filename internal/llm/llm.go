// Package llm adapts text-completion backends (Ollama, Claude, Gemini) to
// the assess.Assessor and plan.Planner contracts. Every adapter fails
// closed: transport errors, empty replies, and replies without a usable
// JSON object are reported as ErrNoResult so hybrid chains fall through.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/plan"
)

// Completer is a single-turn text completion backend.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Prober is implemented by backends that can report reachability.
type Prober interface {
	Healthy(ctx context.Context) bool
}

const (
	ScorerSystem  = "You are a SOC threat scoring assistant."
	PlannerSystem = "You are a SOC response planner."
)

// DefaultTimeout bounds a single completion when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ExtractJSON returns the span from the first '{' to the last '}' of text
// when it is valid JSON.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return "", false
	}
	return candidate, true
}

// ScorerPrompt builds the user prompt asking for an assessment of a.
func ScorerPrompt(a alert.Alert) string {
	return "You are a SOC threat scoring assistant. " +
		"Return JSON with fields: severity (0-100 int), confidence (0-1 float), " +
		"hypothesis (string), evidence (array of strings). " +
		"Be concise and deterministic.\n\n" +
		"Alert:\n" + indentJSON(alertOrEmpty(a)) + "\n"
}

const planSchemaHint = `{
  "planId": "string",
  "strategy": "ObserveMore|NotifyOnly|Contain|ContainAndCollect|EscalateToHuman",
  "priority": "0-100 int",
  "summary": "string",
  "actions": [
    {
      "type": "BlockIp|UnblockIp|IsolateHost|UnisolateHost|DisableUser|EnableUser|KillProcess|QuarantineFile|OpenTicket|Notify|CollectForensics",
      "risk": "0-100 int",
      "expectedImpact": "0-100 int",
      "reversible": "true|false",
      "parameters": {
        "key": "value"
      },
      "rationale": "string"
    }
  ],
  "rollbackActions": [],
  "rationale": [
    "string"
  ],
  "tags": {
    "key": "value"
  }
}`

// PlannerPrompt builds the user prompt asking for a response plan.
func PlannerPrompt(a alert.Alert, as assess.Assessment) string {
	return "You are a SOC response planner. " +
		"Return ONLY a JSON object that matches this schema:\n" +
		planSchemaHint + "\n\n" +
		"Given alert and assessment below, produce a safe, policy-friendly plan.\n\n" +
		"Alert:\n" + indentJSON(alertOrEmpty(a)) + "\n\n" +
		"Assessment:\n" + indentJSON(as) + "\n"
}

func alertOrEmpty(a alert.Alert) alert.Alert {
	if a == nil {
		return alert.Alert{}
	}
	return a
}

func indentJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

func complete(ctx context.Context, name string, c Completer, system, prompt string) (string, error) {
	text, err := c.Complete(ctx, system, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s: %w", assess.ErrNoResult, name, err)
	}
	doc, ok := ExtractJSON(text)
	if !ok {
		return "", fmt.Errorf("%w: %s reply has no JSON object", assess.ErrNoResult, name)
	}
	return doc, nil
}

// Assessor scores alerts with a Completer.
type Assessor struct {
	name    string
	c       Completer
	timeout time.Duration
}

// NewAssessor returns an Assessor named name backed by c.
func NewAssessor(name string, c Completer, timeout time.Duration) *Assessor {
	return &Assessor{name: name, c: c, timeout: timeout}
}

// Name implements assess.Assessor.
func (a *Assessor) Name() string { return a.name }

// Assess implements assess.Assessor.
func (a *Assessor) Assess(ctx context.Context, al alert.Alert) (*assess.Assessment, error) {
	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	doc, err := complete(ctx, a.name, a.c, ScorerSystem, ScorerPrompt(al))
	if err != nil {
		return nil, err
	}
	as, err := assess.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	return as, nil
}

// Planner builds response plans with a Completer.
type Planner struct {
	name    string
	c       Completer
	timeout time.Duration
}

// NewPlanner returns a Planner named name backed by c.
func NewPlanner(name string, c Completer, timeout time.Duration) *Planner {
	return &Planner{name: name, c: c, timeout: timeout}
}

// Name implements plan.Planner.
func (p *Planner) Name() string { return p.name }

// Plan implements plan.Planner.
func (p *Planner) Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*plan.Plan, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	doc, err := complete(ctx, p.name, p.c, PlannerSystem, PlannerPrompt(a, as))
	if err != nil {
		return nil, err
	}
	out, err := plan.ParseJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return out, nil
}

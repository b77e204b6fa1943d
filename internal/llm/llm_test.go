package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/plan"
)

type fakeCompleter struct {
	reply      string
	err        error
	gotSystem  string
	gotPrompt  string
	waitForCtx bool
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.gotSystem, f.gotPrompt = system, prompt
	if f.waitForCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Sure! Here you go:\n{\"a\":{\"b\":2}}\nThanks.", `{"a":{"b":2}}`, true},
		{"fenced", "```json\n{\"x\":true}\n```", `{"x":true}`, true},
		{"empty", "", "", false},
		{"no braces", "nothing", "", false},
		{"reversed", "} then {", "", false},
		{"invalid span", `{"a": } trailing }`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractJSON(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestScorerPrompt(t *testing.T) {
	t.Parallel()

	p := ScorerPrompt(alert.Alert{"ruleName": "x<y"})
	want := "You are a SOC threat scoring assistant. Return JSON with fields: severity (0-100 int), " +
		"confidence (0-1 float), hypothesis (string), evidence (array of strings). Be concise and deterministic.\n\n" +
		"Alert:\n{\n  \"ruleName\": \"x<y\"\n}\n"
	if p != want {
		t.Errorf("ScorerPrompt =\n%q\nwant\n%q", p, want)
	}
}

func TestPlannerPrompt(t *testing.T) {
	t.Parallel()

	p := PlannerPrompt(nil, assess.Assessment{Severity: 10, Confidence: 0.5, Evidence: []string{}})
	for _, want := range []string{
		"Return ONLY a JSON object that matches this schema:\n{\n  \"planId\": \"string\",",
		"\"rollbackActions\": [],",
		"produce a safe, policy-friendly plan.\n\nAlert:\n{}\n\nAssessment:\n{\n  \"severity\": 10,",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("PlannerPrompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "}\n") {
		t.Error("PlannerPrompt must end with the assessment and a newline")
	}
}

func TestAssessor(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{reply: "ok: {\"severity\": 120, \"confidence\": 0.7, \"hypothesis\": \"h\", \"evidence\": [\"e\", 3]}"}
	a := NewAssessor("ollama", fc, time.Second)

	got, err := a.Assess(context.Background(), alert.Alert{"ruleName": "r"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Severity != 100 || got.Confidence != 0.7 || got.Hypothesis != "h" || len(got.Evidence) != 1 {
		t.Errorf("assessment = %+v", got)
	}
	if fc.gotSystem != ScorerSystem {
		t.Errorf("system = %q", fc.gotSystem)
	}
	if a.Name() != "ollama" {
		t.Errorf("Name = %q", a.Name())
	}
}

func TestAssessor_FailsClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"transport error", &fakeCompleter{err: errors.New("connection refused")}},
		{"prose only", &fakeCompleter{reply: "I cannot help with that."}},
		{"missing confidence", &fakeCompleter{reply: `{"severity": 50}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewAssessor("x", tt.fc, time.Second).Assess(context.Background(), alert.Alert{})
			if !errors.Is(err, assess.ErrNoResult) {
				t.Errorf("err = %v, want ErrNoResult", err)
			}
		})
	}
}

func TestAssessor_Timeout(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{waitForCtx: true}
	_, err := NewAssessor("slow", fc, 20*time.Millisecond).Assess(context.Background(), alert.Alert{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if !assess.Recoverable(err) {
		t.Error("timeout must be recoverable")
	}
}

func TestPlanner(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{reply: `{"strategy":"Contain","priority":70,"actions":[{"type":"DisableUser","parameters":{"username":"bob"}}]}`}
	p, err := NewPlanner("ollama", fc, time.Second).Plan(context.Background(), alert.Alert{}, assess.Assessment{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p.Strategy != plan.Contain || len(p.RollbackActions) != 1 || p.RollbackActions[0].Type != plan.EnableUser {
		t.Errorf("plan = %+v", p)
	}
	if fc.gotSystem != PlannerSystem {
		t.Errorf("system = %q", fc.gotSystem)
	}
}

func TestPlanner_InvalidPlan(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{reply: `{"strategy":"Obliterate","actions":[]}`}
	_, err := NewPlanner("ollama", fc, time.Second).Plan(context.Background(), alert.Alert{}, assess.Assessment{})
	if !errors.Is(err, plan.ErrNoResult) {
		t.Errorf("err = %v, want ErrNoResult", err)
	}
}

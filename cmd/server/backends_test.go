package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/alert"
	vc "github.com/linnemanlabs/warden/internal/cfg"
	"github.com/linnemanlabs/warden/internal/plan"
)

func testConfig() vc.Config {
	return vc.Config{
		ScorerSources:         "ollama,claude",
		SourceTimeoutSeconds:  5,
		PlannerLocal:          vc.PlannerRule,
		OllamaURL:             "http://127.0.0.1:1",
		OllamaModel:           "mistral",
		ClaudeAPIKey:          "sk-test",
		ClaudeModel:           "claude-test",
		PlannerURL:            "http://planner.invalid",
		PlannerAPIKeyHeader:   "Authorization",
		PlannerAPIKeyPrefix:   "Bearer",
		PlannerTimeoutSeconds: 5,
	}
}

func TestBackends_AssessorsInOrder(t *testing.T) {
	t.Parallel()

	b := newBackends(testConfig(), log.Nop())
	got, err := b.assessors(context.Background())
	if err != nil {
		t.Fatalf("assessors: %v", err)
	}
	if len(got) != 2 || got[0].Name() != "ollama" || got[1].Name() != "claude" {
		t.Fatalf("assessors = %v", got)
	}
	if b.prober() == nil {
		t.Error("prober should be the ollama client once ollama is wired")
	}
}

func TestBackends_NoOllamaNoProber(t *testing.T) {
	t.Parallel()

	c := testConfig()
	c.ScorerSources = "claude"
	b := newBackends(c, log.Nop())
	if _, err := b.assessors(context.Background()); err != nil {
		t.Fatalf("assessors: %v", err)
	}
	if b.prober() != nil {
		t.Error("prober should be nil without ollama")
	}
}

func TestBackends_Planner(t *testing.T) {
	t.Parallel()

	b := newBackends(testConfig(), log.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		wantName string
		wantNil  bool
	}{
		{"", "", true},
		{vc.PlannerRule, plan.RuleName, false},
		{vc.PlannerHTTP, "remote", false},
		{vc.BackendOllama, "ollama", false},
		{vc.BackendClaude, "claude", false},
	}
	for _, tt := range tests {
		p, err := b.planner(ctx, tt.name)
		if err != nil {
			t.Fatalf("planner(%q): %v", tt.name, err)
		}
		if tt.wantNil {
			if p != nil {
				t.Errorf("planner(%q) = %v, want nil", tt.name, p)
			}
			continue
		}
		if p == nil || p.Name() != tt.wantName {
			t.Errorf("planner(%q) = %v, want %s", tt.name, p, tt.wantName)
		}
	}

	if _, err := b.planner(ctx, "openai"); err == nil {
		t.Error("expected error for unknown planner backend")
	}
}

func TestBackends_SharesClients(t *testing.T) {
	t.Parallel()

	b := newBackends(testConfig(), log.Nop())
	ctx := context.Background()
	first, _ := b.completer(ctx, vc.BackendOllama)
	second, _ := b.completer(ctx, vc.BackendOllama)
	if first != second {
		t.Error("ollama client should be built once")
	}
	if err := b.close(); err != nil {
		t.Errorf("close without gemini: %v", err)
	}
}

func TestBackends_OllamaAssessorEndToEnd(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{
				"role":    "assistant",
				"content": `Sure: {"severity": 77, "confidence": 0.6, "hypothesis": "h", "evidence": ["e"]}`,
			},
		})
	}))
	defer srv.Close()

	c := testConfig()
	c.ScorerSources = "ollama"
	c.OllamaURL = srv.URL
	b := newBackends(c, log.Nop())

	sources, err := b.assessors(context.Background())
	if err != nil {
		t.Fatalf("assessors: %v", err)
	}
	got, err := sources[0].Assess(context.Background(), alert.Alert{"ruleName": "x"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Severity != 77 || got.Confidence != 0.6 {
		t.Errorf("assessment = %+v", got)
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/assess"
	vc "github.com/linnemanlabs/warden/internal/cfg"
	"github.com/linnemanlabs/warden/internal/llm"
	"github.com/linnemanlabs/warden/internal/llm/claude"
	"github.com/linnemanlabs/warden/internal/llm/gemini"
	"github.com/linnemanlabs/warden/internal/llm/ollama"
	"github.com/linnemanlabs/warden/internal/plan"
)

// backends builds each LLM client at most once, shared by the assessment
// and planning chains.
type backends struct {
	cfg    vc.Config
	logger log.Logger

	ollama *ollama.Client
	claude *claude.Client
	gemini *gemini.Client
}

func newBackends(c vc.Config, logger log.Logger) *backends {
	return &backends{cfg: c, logger: logger}
}

func (b *backends) completer(ctx context.Context, name string) (llm.Completer, error) {
	switch name {
	case vc.BackendOllama:
		if b.ollama == nil {
			b.ollama = ollama.New(b.cfg.OllamaURL, b.cfg.OllamaModel)
			b.logger.Info(ctx, "initialized LLM provider", "provider", name, "model", b.cfg.OllamaModel, "url", b.cfg.OllamaURL)
		}
		return b.ollama, nil
	case vc.BackendClaude:
		if b.claude == nil {
			b.claude = claude.New(b.cfg.ClaudeAPIKey, b.cfg.ClaudeModel)
			b.logger.Info(ctx, "initialized LLM provider", "provider", name, "model", b.cfg.ClaudeModel)
		}
		return b.claude, nil
	case vc.BackendGemini:
		if b.gemini == nil {
			g, err := gemini.New(ctx, b.cfg.GeminiAPIKey, b.cfg.GeminiModel)
			if err != nil {
				return nil, err
			}
			b.gemini = g
			b.logger.Info(ctx, "initialized LLM provider", "provider", name, "model", g.Model())
		}
		return b.gemini, nil
	}
	return nil, fmt.Errorf("unknown llm backend %q", name)
}

func (b *backends) sourceTimeout() time.Duration {
	return time.Duration(b.cfg.SourceTimeoutSeconds) * time.Second
}

// assessors returns the configured assessment sources in order.
func (b *backends) assessors(ctx context.Context) ([]assess.Assessor, error) {
	var out []assess.Assessor
	for _, name := range b.cfg.Scorers() {
		c, err := b.completer(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("scorer %s: %w", name, err)
		}
		out = append(out, llm.NewAssessor(name, c, b.sourceTimeout()))
	}
	return out, nil
}

// planner returns the planner registered under name. An empty name means
// no planner.
func (b *backends) planner(ctx context.Context, name string) (plan.Planner, error) {
	switch name {
	case "":
		return nil, nil
	case vc.PlannerRule:
		return plan.NewRule(), nil
	case vc.PlannerHTTP:
		return plan.NewRemote(plan.RemoteConfig{
			Endpoint:     b.cfg.PlannerURL,
			APIKey:       b.cfg.PlannerAPIKey,
			APIKeyHeader: b.cfg.PlannerAPIKeyHeader,
			APIKeyPrefix: b.cfg.PlannerAPIKeyPrefix,
			Timeout:      time.Duration(b.cfg.PlannerTimeoutSeconds) * time.Second,
		}), nil
	}
	c, err := b.completer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("planner %s: %w", name, err)
	}
	return llm.NewPlanner(name, c, b.sourceTimeout()), nil
}

// prober returns the Ollama health probe when Ollama is wired in.
func (b *backends) prober() llm.Prober {
	if b.ollama == nil {
		return nil
	}
	return b.ollama
}

func (b *backends) close() error {
	if b.gemini != nil {
		return b.gemini.Close()
	}
	return nil
}

package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
)

// Hooks receives per-planner attempt events. Nil fields are skipped.
type Hooks struct {
	OnAttempt func(source, outcome string, dur time.Duration)
}

// Hybrid tries the local planner, then the remote planner if configured,
// then the local planner once more. Only the final attempt's error is
// returned.
type Hybrid struct {
	local  Planner
	remote Planner
	hooks  Hooks
}

// NewHybrid returns a chain over local and an optional remote.
func NewHybrid(local, remote Planner, hooks Hooks) *Hybrid {
	if local == nil {
		local = NewRule()
	}
	return &Hybrid{local: local, remote: remote, hooks: hooks}
}

// Name implements Planner.
func (h *Hybrid) Name() string { return "hybrid" }

// Local returns the local planner's name.
func (h *Hybrid) Local() string { return h.local.Name() }

// Remote returns the remote planner's name, or "" when none is configured.
func (h *Hybrid) Remote() string {
	if h.remote == nil {
		return ""
	}
	return h.remote.Name()
}

// Plan implements Planner.
func (h *Hybrid) Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*Plan, error) {
	p, _, err := h.PlanFrom(ctx, a, as)
	return p, err
}

// PlanFrom is Plan that also reports which planner produced the result.
func (h *Hybrid) PlanFrom(ctx context.Context, a alert.Alert, as assess.Assessment) (*Plan, string, error) {
	p, err := h.try(ctx, h.local, a, as)
	if err == nil {
		return p, h.local.Name(), nil
	}
	if !assess.Recoverable(err) {
		return nil, h.local.Name(), fmt.Errorf("planner %s: %w", h.local.Name(), err)
	}

	if h.remote != nil {
		p, err = h.try(ctx, h.remote, a, as)
		if err == nil {
			return p, h.remote.Name(), nil
		}
		if !assess.Recoverable(err) {
			return nil, h.remote.Name(), fmt.Errorf("planner %s: %w", h.remote.Name(), err)
		}
	}

	p, err = h.try(ctx, h.local, a, as)
	if err != nil {
		return nil, h.local.Name(), fmt.Errorf("planner %s: %w", h.local.Name(), err)
	}
	return p, h.local.Name(), nil
}

func (h *Hybrid) try(ctx context.Context, pl Planner, a alert.Alert, as assess.Assessment) (*Plan, error) {
	start := time.Now()
	p, err := pl.Plan(ctx, a, as)
	outcome := assess.OutcomeOK
	switch {
	case err == nil && p == nil:
		err = fmt.Errorf("%w: planner %s returned no plan", ErrNoResult, pl.Name())
		outcome = assess.OutcomeNoResult
	case err == nil:
	case errors.Is(err, ErrNoResult):
		outcome = assess.OutcomeNoResult
	case assess.Recoverable(err):
		outcome = assess.OutcomeTimeout
	default:
		outcome = assess.OutcomeError
	}
	if h.hooks.OnAttempt != nil {
		h.hooks.OnAttempt(pl.Name(), outcome, time.Since(start))
	}
	return p, err
}

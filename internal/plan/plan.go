// Package plan turns an alert and its assessment into an auditable
// response plan: a strategy, concrete actions with risk metadata, the
// rollback actions that undo them, and a priority.
package plan

import (
	"context"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
)

// ErrNoResult reports that a planner produced nothing usable.
var ErrNoResult = assess.ErrNoResult

// Strategy is the overall response posture.
type Strategy string

// Strategies, from least to most invasive.
const (
	ObserveMore       Strategy = "ObserveMore"
	NotifyOnly        Strategy = "NotifyOnly"
	EscalateToHuman   Strategy = "EscalateToHuman"
	Contain           Strategy = "Contain"
	ContainAndCollect Strategy = "ContainAndCollect"
)

// Strategies lists every valid strategy.
var Strategies = []Strategy{ObserveMore, NotifyOnly, Contain, ContainAndCollect, EscalateToHuman}

// ActionType names a response action.
type ActionType string

// Action types.
const (
	BlockIP          ActionType = "BlockIp"
	UnblockIP        ActionType = "UnblockIp"
	IsolateHost      ActionType = "IsolateHost"
	UnisolateHost    ActionType = "UnisolateHost"
	DisableUser      ActionType = "DisableUser"
	EnableUser       ActionType = "EnableUser"
	KillProcess      ActionType = "KillProcess"
	QuarantineFile   ActionType = "QuarantineFile"
	OpenTicket       ActionType = "OpenTicket"
	Notify           ActionType = "Notify"
	CollectForensics ActionType = "CollectForensics"
)

// Action is one concrete step of a plan.
type Action struct {
	Type           ActionType        `json:"type"`
	Risk           int               `json:"risk"`
	ExpectedImpact int               `json:"expectedImpact"`
	Reversible     bool              `json:"reversible"`
	Parameters     map[string]string `json:"parameters"`
	Rationale      string            `json:"rationale"`
}

// Plan is a complete response plan. RollbackActions always holds exactly
// one inverse per reversible forward action, in reverse order.
type Plan struct {
	PlanID          string            `json:"planId"`
	Strategy        Strategy          `json:"strategy"`
	Priority        int               `json:"priority"`
	Summary         string            `json:"summary"`
	Actions         []Action          `json:"actions"`
	RollbackActions []Action          `json:"rollbackActions"`
	Rationale       []string          `json:"rationale"`
	Tags            map[string]string `json:"tags"`
}

// Planner produces a Plan. Implementations return an error wrapping
// ErrNoResult, or a context error, when they cannot decide.
type Planner interface {
	Name() string
	Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*Plan, error)
}

package plan

import "maps"

// ActionSpec is the static metadata for an action type.
type ActionSpec struct {
	Risk           int
	ExpectedImpact int
	Reversible     bool
}

// unknownSpec applies to action types missing from the catalog.
var unknownSpec = ActionSpec{Risk: 50, ExpectedImpact: 50}

var actionCatalog = map[ActionType]ActionSpec{
	BlockIP:          {55, 30, true},
	UnblockIP:        {10, 5, false},
	IsolateHost:      {70, 60, true},
	UnisolateHost:    {15, 10, false},
	DisableUser:      {65, 50, true},
	EnableUser:       {15, 10, false},
	KillProcess:      {85, 85, false},
	QuarantineFile:   {85, 85, false},
	OpenTicket:       {5, 5, false},
	Notify:           {5, 5, false},
	CollectForensics: {35, 20, false},
}

var inverses = map[ActionType]ActionType{
	BlockIP:     UnblockIP,
	IsolateHost: UnisolateHost,
	DisableUser: EnableUser,
}

// Spec returns the metadata for t and whether t is a known type.
func Spec(t ActionType) (ActionSpec, bool) {
	s, ok := actionCatalog[t]
	if !ok {
		return unknownSpec, false
	}
	return s, true
}

// Known reports whether t is a catalogued action type.
func Known(t ActionType) bool {
	_, ok := actionCatalog[t]
	return ok
}

// Inverse returns the action type that undoes t.
func Inverse(t ActionType) (ActionType, bool) {
	inv, ok := inverses[t]
	return inv, ok
}

// NewAction builds an action of type t with catalog metadata. params is
// copied; nil becomes an empty map.
func NewAction(t ActionType, rationale string, params map[string]string) Action {
	s, _ := Spec(t)
	p := make(map[string]string, len(params))
	maps.Copy(p, params)
	return Action{
		Type:           t,
		Risk:           s.Risk,
		ExpectedImpact: s.ExpectedImpact,
		Reversible:     s.Reversible,
		Parameters:     p,
		Rationale:      rationale,
	}
}

// Rollbacks returns the inverse of every invertible action, walking
// actions from last to first. Parameters are carried over unchanged.
func Rollbacks(actions []Action) []Action {
	out := []Action{}
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		inv, ok := Inverse(a.Type)
		if !ok {
			continue
		}
		out = append(out, NewAction(inv, "Rollback for "+string(a.Type), a.Parameters))
	}
	return out
}

package heuristic

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/linnemanlabs/warden/internal/record"
)

// MatcherFunc is a custom, possibly stateful, rule predicate. It runs with
// cctx locked and may keep state via cctx.State.
type MatcherFunc func(rec *record.Record, cctx *Context) bool

// Matchers maps matcher names, as referenced by catalog rules, to predicates.
type Matchers map[string]MatcherFunc

// LoginGeoMatcher is the name of the identity/IP change matcher.
const LoginGeoMatcher = "login_geo_matcher"

// BuiltinMatchers returns the matchers available to every catalog.
func BuiltinMatchers() Matchers {
	return Matchers{
		LoginGeoMatcher: loginGeoMatch,
	}
}

// Match reports whether rec satisfies rule. Custom rules need a non-nil
// cctx and never match without one.
func Match(rec *record.Record, rule *Rule, cctx *Context) bool {
	if rule.Custom() {
		if rule.match == nil || cctx == nil {
			return false
		}
		return cctx.run(func() bool { return rule.match(rec, cctx) })
	}

	for _, field := range rule.MatchFields {
		text := strings.ToLower(fieldText(rec, field))
		if len(rule.exclude) > 0 && containsAny(text, rule.exclude) {
			continue
		}
		if len(rule.all) > 0 && !containsAll(text, rule.all) {
			continue
		}
		if containsAny(text, rule.keywords) {
			return true
		}
	}
	return false
}

func fieldText(rec *record.Record, field string) string {
	switch field {
	case "rule":
		return rec.Rule.Raw()
	case "description":
		return rec.Rule.String("description")
	case "full_log":
		return rec.FullLog
	}
	return rec.Field(field)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

const loginHistoryKey = "login_history"

// loginGeoMatch fires when an identity is seen from a different IP than
// the one last recorded for it. Every sighting updates the record.
func loginGeoMatch(rec *record.Record, cctx *Context) bool {
	id := rec.Agent.String("id")
	if id == "" {
		id = rec.Agent.String("name")
	}
	ip := rec.Agent.String("ip")
	if id == "" || ip == "" {
		return false
	}

	history := cctx.State(loginHistoryKey, func() any {
		h, err := lru.New[string, string](cctx.HistorySize())
		if err != nil {
			// size is always positive, see NewContext
			panic(err)
		}
		return h
	}).(*lru.Cache[string, string])

	prev, seen := history.Get(id)
	history.Add(id, ip)
	return seen && prev != ip
}

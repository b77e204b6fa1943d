package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

//go:embed plan.schema.json
var planSchemaJSON string

const planSchemaURL = "plan.schema.json"

var planSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(planSchemaURL, strings.NewReader(planSchemaJSON)); err != nil {
		panic(fmt.Sprintf("plan schema: %v", err))
	}
	return c.MustCompile(planSchemaURL)
}

// ParseJSON decodes a plan produced by an external planner. The document
// is validated against the plan schema, then normalized so the rollback
// invariant holds. Invalid input is ErrNoResult.
func ParseJSON(data string) (*Plan, error) {
	data = strings.TrimSpace(data)
	if data == "" || !gjson.Valid(data) {
		return nil, fmt.Errorf("%w: plan is not valid JSON", ErrNoResult)
	}

	var doc any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %w", ErrNoResult, err)
	}
	if err := planSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: plan failed schema validation: %w", ErrNoResult, err)
	}

	root := gjson.Parse(data)
	p := &Plan{
		PlanID:    root.Get("planId").String(),
		Strategy:  Strategy(root.Get("strategy").String()),
		Priority:  int(root.Get("priority").Float()),
		Summary:   root.Get("summary").String(),
		Rationale: []string{},
		Tags:      stringMap(root.Get("tags")),
	}
	for _, a := range root.Get("actions").Array() {
		p.Actions = append(p.Actions, decodeAction(a))
	}
	for _, r := range root.Get("rationale").Array() {
		p.Rationale = append(p.Rationale, r.String())
	}

	Normalize(p)
	return p, nil
}

func decodeAction(a gjson.Result) Action {
	t := ActionType(a.Get("type").String())
	spec, _ := Spec(t)
	act := Action{
		Type:           t,
		Risk:           spec.Risk,
		ExpectedImpact: spec.ExpectedImpact,
		Reversible:     spec.Reversible,
		Parameters:     stringMap(a.Get("parameters")),
		Rationale:      a.Get("rationale").String(),
	}
	if v := a.Get("risk"); v.Exists() {
		act.Risk = int(v.Float())
	}
	if v := a.Get("expectedImpact"); v.Exists() {
		act.ExpectedImpact = int(v.Float())
	}
	if v := a.Get("reversible"); v.Exists() {
		act.Reversible = v.Bool()
	}
	return act
}

func stringMap(r gjson.Result) map[string]string {
	out := map[string]string{}
	r.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.Null {
			out[k.String()] = v.String()
		}
		return true
	})
	return out
}

// Normalize stamps a missing plan ID, clamps numeric fields, fills nil
// collections, and re-derives rollback actions from the forward actions.
func Normalize(p *Plan) {
	if p.PlanID == "" {
		p.PlanID = ulid.Make().String()
	}
	p.Priority = clamp100(p.Priority)
	if p.Actions == nil {
		p.Actions = []Action{}
	}
	for i := range p.Actions {
		a := &p.Actions[i]
		a.Risk = clamp100(a.Risk)
		a.ExpectedImpact = clamp100(a.ExpectedImpact)
		if a.Parameters == nil {
			a.Parameters = map[string]string{}
		}
	}
	p.RollbackActions = Rollbacks(p.Actions)
	if p.Rationale == nil {
		p.Rationale = []string{}
	}
	if p.Tags == nil {
		p.Tags = map[string]string{}
	}
}

func clamp100(v int) int {
	return min(max(v, 0), 100)
}

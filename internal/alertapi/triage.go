package alertapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/plan"
)

type alertRequest struct {
	Alert alert.Alert `json:"alert"`
}

type batchRequest struct {
	Alerts []alert.Alert `json:"alerts"`
}

type planRequest struct {
	Alert      alert.Alert        `json:"alert"`
	Assessment *assess.Assessment `json:"assessment"`
}

type planResponse struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Cached bool      `json:"cached"`
	Plan   plan.Plan `json:"plan"`
}

type triageResponse struct {
	Assessment       assess.Assessment `json:"assessment"`
	AssessmentSource string            `json:"assessment_source"`
	Cached           bool              `json:"cached"`
	PlanID           string            `json:"plan_id"`
	PlanSource       string            `json:"plan_source"`
	PlanCached       bool              `json:"plan_cached"`
	Plan             plan.Plan         `json:"plan"`
}

// assessment source is reported in a header so the body stays a bare
// assessment document
const headerAssessmentSource = "X-Warden-Assessment-Source"

func (a *API) handleScore(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !decode(r, &req) {
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}

	res, err := a.svc.Score(r.Context(), orEmpty(req.Alert))
	if err != nil {
		a.logger.Error(r.Context(), err, "score failed")
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("warden.assessment.source", res.Source),
		attribute.Int("warden.assessment.severity", res.Assessment.Severity),
	)

	w.Header().Set(headerAssessmentSource, res.Source)
	writeJSON(w, http.StatusOK, res.Assessment)
}

func (a *API) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(r, &req) {
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}
	for i, al := range req.Alerts {
		req.Alerts[i] = orEmpty(al)
	}

	results, err := a.svc.ScoreBatch(r.Context(), req.Alerts)
	if err != nil {
		a.logger.Error(r.Context(), err, "batch score failed", "alerts", len(req.Alerts))
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int("warden.batch.size", len(results)))

	out := make([]assess.Assessment, 0, len(results))
	for _, res := range results {
		out = append(out, res.Assessment)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (a *API) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decode(r, &req) {
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}
	as := assess.Lenient("{}")
	if req.Assessment != nil {
		as = *req.Assessment
	}

	rec, err := a.svc.Plan(r.Context(), orEmpty(req.Alert), as)
	if err != nil {
		a.logger.Error(r.Context(), err, "plan failed")
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("warden.plan.id", rec.ID),
		attribute.String("warden.plan.strategy", string(rec.Plan.Strategy)),
	)
	writeJSON(w, http.StatusOK, planResponse{ID: rec.ID, Source: rec.PlanSource, Cached: rec.Cached, Plan: rec.Plan})
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !decode(r, &req) {
		http.Error(w, errInvalidPayload, http.StatusBadRequest)
		return
	}

	res, err := a.svc.Triage(r.Context(), orEmpty(req.Alert))
	if err != nil {
		a.logger.Error(r.Context(), err, "triage failed")
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("warden.plan.id", res.Plan.ID),
		attribute.String("warden.plan.strategy", string(res.Plan.Plan.Strategy)),
	)
	writeJSON(w, http.StatusOK, triageResponse{
		Assessment:       res.Assessment.Assessment,
		AssessmentSource: res.Assessment.Source,
		Cached:           res.Assessment.Cached,
		PlanID:           res.Plan.ID,
		PlanSource:       res.Plan.PlanSource,
		PlanCached:       res.Plan.Cached,
		Plan:             res.Plan.Plan,
	})
}

// orEmpty treats a missing or null alert as an empty one.
func orEmpty(al alert.Alert) alert.Alert {
	if al == nil {
		return alert.Alert{}
	}
	return al
}

func (a *API) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("warden.plan.id", id))

	rec, ok, err := a.svc.GetPlan(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get plan record", "id", id)
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, errNotFound, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("warden.plan.strategy", string(rec.Plan.Strategy)))
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleLatestPlan(w http.ResponseWriter, r *http.Request) {
	fp := r.URL.Query().Get("fingerprint")
	if fp == "" {
		http.Error(w, `{"error":"fingerprint is required"}`, http.StatusBadRequest)
		return
	}

	rec, ok, err := a.svc.LatestPlan(r.Context(), fp)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get latest plan", "fingerprint", fp)
		http.Error(w, errInternal, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, errNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

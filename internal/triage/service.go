package triage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/warden/internal/alert"
	"github.com/linnemanlabs/warden/internal/assess"
	"github.com/linnemanlabs/warden/internal/cache"
	"github.com/linnemanlabs/warden/internal/heuristic"
	"github.com/linnemanlabs/warden/internal/llm"
	"github.com/linnemanlabs/warden/internal/plan"
	"github.com/linnemanlabs/warden/internal/record"
	"github.com/linnemanlabs/warden/internal/response"
)

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/triage")

// Options configures a Service. Store is required; every other field has
// a working default.
type Options struct {
	Assessor    *assess.Hybrid
	Planner     *plan.Hybrid
	Cache       *cache.Cache[assess.Assessment]
	PlanCache   *cache.Cache[PlanRecord]
	Catalog     *heuristic.Catalog
	Correlation *heuristic.Context
	ScanLimit   int
	ScanHooks   heuristic.ScanHooks
	Actions     response.Actions
	Store       Store
	Notifiers   []Notifier
	Prober      llm.Prober
	Logger      log.Logger
	Hooks       Hooks
}

// Service is the business boundary for triage operations.
type Service struct {
	assessor    *assess.Hybrid
	planner     *plan.Hybrid
	fallback    *plan.Rule
	cache       *cache.Cache[assess.Assessment]
	planCache   *cache.Cache[PlanRecord]
	catalog     *heuristic.Catalog
	correlation *heuristic.Context
	scanLimit   int
	scanHooks   heuristic.ScanHooks
	actions     response.Actions
	store       Store
	notifiers   []Notifier
	prober      llm.Prober
	logger      log.Logger
	hooks       Hooks

	scoreRequests atomic.Int64
	planRequests  atomic.Int64
	scanRequests  atomic.Int64
}

// NewService creates a new triage service.
func NewService(opts Options) *Service {
	if opts.Store == nil {
		panic(xerrors.New("triage.NewService: nil store"))
	}
	s := &Service{
		assessor:    opts.Assessor,
		planner:     opts.Planner,
		fallback:    plan.NewRule(),
		cache:       opts.Cache,
		planCache:   opts.PlanCache,
		catalog:     opts.Catalog,
		correlation: opts.Correlation,
		scanLimit:   opts.ScanLimit,
		scanHooks:   opts.ScanHooks,
		actions:     opts.Actions,
		store:       opts.Store,
		notifiers:   opts.Notifiers,
		prober:      opts.Prober,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}
	if s.assessor == nil {
		s.assessor = assess.NewHybrid(nil, assess.Hooks{})
	}
	if s.planner == nil {
		s.planner = plan.NewHybrid(nil, nil, plan.Hooks{})
	}
	if s.cache == nil {
		s.cache = cache.New[assess.Assessment](0)
	}
	if s.planCache == nil {
		s.planCache = cache.New[PlanRecord](0)
	}
	if s.catalog == nil {
		s.catalog = heuristic.Default()
	}
	if s.correlation == nil {
		s.correlation = heuristic.NewContext(0)
	}
	if s.actions == nil {
		s.actions = response.DefaultActions()
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	return s
}

// Score returns the assessment for a, from the cache when the alert's
// fingerprint has been seen before. A failed assessor chain is replaced
// by the rule assessor so Score only fails on an unencodable alert.
func (s *Service) Score(ctx context.Context, a alert.Alert) (*ScoreResult, error) {
	s.scoreRequests.Add(1)
	ctx, span := tracer.Start(ctx, "triage.Score")
	defer span.End()

	fp, err := a.Fingerprint()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fingerprint failed")
		return nil, fmt.Errorf("fingerprint alert: %w", err)
	}
	span.SetAttributes(attribute.String("alert.fingerprint", fp))

	if cached, ok := s.cache.Get(fp); ok {
		s.onCache(cacheAssessment, true)
		span.SetAttributes(attribute.Bool("assessment.cached", true))
		return &ScoreResult{Assessment: cached, Source: "cache", Cached: true}, nil
	}
	s.onCache(cacheAssessment, false)

	res, source, err := s.assessor.AssessFrom(ctx, a)
	if err != nil || res == nil {
		s.logger.Warn(ctx, "assessor chain failed, using rule assessment",
			"fingerprint", fp, "source", source, "err", err)
		fallback := assess.Score(a)
		res, source = &fallback, assess.RuleName
	}

	s.cache.Set(fp, *res)
	span.SetAttributes(
		attribute.String("assessment.source", source),
		attribute.Int("assessment.severity", res.Severity),
	)
	return &ScoreResult{Assessment: *res, Source: source}, nil
}

// ScoreBatch scores each alert in order. The first error aborts the batch.
func (s *Service) ScoreBatch(ctx context.Context, alerts []alert.Alert) ([]ScoreResult, error) {
	out := make([]ScoreResult, 0, len(alerts))
	for i, a := range alerts {
		res, err := s.Score(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("alert %d: %w", i, err)
		}
		out = append(out, *res)
	}
	return out, nil
}

// Plan produces a plan for a under as, records it in the store and hands
// it to the notifiers when its strategy needs a human. A failed planner
// chain is replaced by the rule planner. A plan cached for the same alert
// and assessment is returned as is, without storing or notifying again.
func (s *Service) Plan(ctx context.Context, a alert.Alert, as assess.Assessment) (*PlanRecord, error) {
	return s.plan(ctx, a, as, "")
}

func (s *Service) plan(ctx context.Context, a alert.Alert, as assess.Assessment, assessmentSource string) (*PlanRecord, error) {
	s.planRequests.Add(1)
	ctx, span := tracer.Start(ctx, "triage.Plan")
	defer span.End()

	fp, err := a.Fingerprint()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fingerprint failed")
		return nil, fmt.Errorf("fingerprint alert: %w", err)
	}
	L := s.logger.With("fingerprint", fp)

	as.Clamp()
	key, err := planKey(fp, as)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan key failed")
		return nil, err
	}
	if cached, ok := s.planCache.Get(key); ok {
		s.onCache(cachePlan, true)
		span.SetAttributes(
			attribute.Bool("plan.cached", true),
			attribute.String("plan.id", cached.ID),
		)
		cached.Cached = true
		return &cached, nil
	}
	s.onCache(cachePlan, false)

	p, source, err := s.planner.PlanFrom(ctx, a, as)
	if err != nil || p == nil {
		L.Warn(ctx, "planner chain failed, using rule plan", "source", source, "err", err)
		p, source = s.fallback.Build(a, as), s.fallback.Name()
	}

	rec := &PlanRecord{
		ID:               p.PlanID,
		Fingerprint:      fp,
		AssessmentSource: assessmentSource,
		PlanSource:       source,
		Assessment:       as,
		Plan:             *p,
		CreatedAt:        time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.String("plan.id", rec.ID),
		attribute.String("plan.strategy", string(p.Strategy)),
		attribute.String("plan.source", source),
		attribute.Int("plan.priority", p.Priority),
	)

	if err := s.store.Put(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return nil, fmt.Errorf("store plan: %w", err)
	}
	s.planCache.Set(key, *rec)
	if s.hooks.OnPlan != nil {
		s.hooks.OnPlan(p.Strategy, source)
	}
	L.Info(ctx, "plan emitted",
		"plan_id", rec.ID,
		"strategy", p.Strategy,
		"priority", p.Priority,
		"source", source,
	)

	if notifyStrategies[p.Strategy] && len(s.notifiers) > 0 {
		// copy so the caller may mutate the returned record
		snapshot := *rec
		go s.notify(context.WithoutCancel(ctx), &snapshot)
	}
	return rec, nil
}

// Triage scores a and plans against the resulting assessment.
func (s *Service) Triage(ctx context.Context, a alert.Alert) (*TriageResult, error) {
	ctx, span := tracer.Start(ctx, "triage.Triage")
	defer span.End()

	score, err := s.Score(ctx, a)
	if err != nil {
		return nil, err
	}
	rec, err := s.plan(ctx, a, score.Assessment, score.Source)
	if err != nil {
		return nil, err
	}
	return &TriageResult{Assessment: *score, Plan: rec}, nil
}

// GetPlan retrieves a stored plan record by ID.
func (s *Service) GetPlan(ctx context.Context, id string) (*PlanRecord, bool, error) {
	return s.store.Get(ctx, id)
}

// LatestPlan retrieves the most recent plan recorded for an alert
// fingerprint.
func (s *Service) LatestPlan(ctx context.Context, fingerprint string) (*PlanRecord, bool, error) {
	return s.store.GetByFingerprint(ctx, fingerprint)
}

// Scan runs the heuristic catalog over r. Correlation state is shared
// across calls; the per-heuristic cap applies to this pass only.
func (s *Service) Scan(ctx context.Context, r record.Reader) (*ScanResult, error) {
	s.scanRequests.Add(1)
	ctx, span := tracer.Start(ctx, "triage.Scan")
	defer span.End()

	sc := heuristic.NewScanner(s.catalog, s.scanLimit, s.scanHooks)
	cands, stats, err := sc.Scan(ctx, r, s.correlation)
	span.SetAttributes(
		attribute.Int("scan.records", stats.Records),
		attribute.Int("scan.matches", stats.Matches),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, err
	}
	if cands == nil {
		cands = []heuristic.Candidate{}
	}
	return &ScanResult{Candidates: cands, Stats: stats}, nil
}

// ResponseActions returns the recommended actions for a severity label.
func (s *Service) ResponseActions(label string) []string {
	return s.actions.Lookup(label)
}

// Stats reports configuration and request counters. The Ollama probe, if
// configured, is run on every call.
func (s *Service) Stats(ctx context.Context) Stats {
	st := Stats{
		OK:             true,
		Scorer:         s.assessor.Name(),
		ScorerSources:  s.assessor.Sources(),
		Planner:        s.planner.Local(),
		ScoreRequests:  s.scoreRequests.Load(),
		PlanRequests:   s.planRequests.Load(),
		ScanRequests:   s.scanRequests.Load(),
		CacheSize:      s.cache.Cap(),
		CacheItems:     s.cache.Len(),
		PlanCacheSize:  s.planCache.Cap(),
		PlanCacheItems: s.planCache.Len(),
		Heuristics:     s.catalog.Len(),
	}
	if remote := s.planner.Remote(); remote != "" {
		st.Planner += "+" + remote
	}
	if s.prober != nil {
		ok := s.prober.Healthy(ctx)
		st.OllamaOK = &ok
	}
	return st
}

func (s *Service) notify(ctx context.Context, rec *PlanRecord) {
	L := s.logger.With("plan_id", rec.ID, "strategy", rec.Plan.Strategy)
	for _, n := range s.notifiers {
		outcome := "ok"
		if err := n.Send(ctx, rec); err != nil {
			outcome = "error"
			L.Error(ctx, err, "notification failed", "sink", n.Name())
		}
		if s.hooks.OnNotify != nil {
			s.hooks.OnNotify(n.Name(), outcome)
		}
	}
}

const (
	cacheAssessment = "assessment"
	cachePlan       = "plan"
)

func (s *Service) onCache(name string, hit bool) {
	if s.hooks.OnCache != nil {
		s.hooks.OnCache(name, hit)
	}
}

// planKey identifies a plan by alert fingerprint and the clamped
// assessment it was built under.
func planKey(fp string, as assess.Assessment) (string, error) {
	b, err := json.Marshal(as)
	if err != nil {
		return "", fmt.Errorf("encode assessment: %w", err)
	}
	sum := sha256.Sum256(append([]byte(fp+"\n"), b...))
	return hex.EncodeToString(sum[:]), nil
}

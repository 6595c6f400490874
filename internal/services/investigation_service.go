package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/cache"
	"github.com/inquestlabs/inquest-engine/internal/engine"
	"github.com/inquestlabs/inquest-engine/internal/metrics"
	"github.com/inquestlabs/inquest-engine/internal/models"
	"github.com/inquestlabs/inquest-engine/internal/utils"
)

// InvestigationStore defines the persistence operations the service needs.
type InvestigationStore interface {
	CreateInvestigation(ctx context.Context, inv models.Investigation) error
	GetInvestigation(ctx context.Context, id string) (models.Investigation, error)
	ListInvestigations(ctx context.Context) ([]models.Investigation, error)
	TouchInvestigation(ctx context.Context, id string, at time.Time) error
	SaveSignals(ctx context.Context, investigationID string, signals []models.Signal) (int, error)
	ListSignals(ctx context.Context, investigationID string) ([]models.Signal, error)
	LoadPathState(ctx context.Context, investigationID string) ([]models.Path, error)
	SavePathState(ctx context.Context, investigationID string, paths []models.Path, at time.Time) error
}

// IngestResult reports the outcome of one signal batch.
type IngestResult struct {
	Stored  int      `json:"stored"`
	Skipped []string `json:"skipped,omitempty"`
	Graph   models.Graph
}

// InvestigationService orchestrates the evidence-to-briefing flow: load
// stored signals, rebuild the graph, enumerate and reconcile hypothesis
// threads, persist the lifecycle diff, derive briefings on demand.
type InvestigationService struct {
	logger      *slog.Logger
	store       InvestigationStore
	ingestor    *engine.Ingestor
	pathEngine  *engine.PathEngine
	labeler     engine.Labeler
	cache       cache.Provider
	briefingTTL time.Duration
	weakEdge    float64
	latencies   *utils.LatencyTracker
}

// NewInvestigationService constructs the service facade. labeler may be nil;
// cacheProvider may be nil.
func NewInvestigationService(
	logger *slog.Logger,
	st InvestigationStore,
	ingestor *engine.Ingestor,
	pathEngine *engine.PathEngine,
	labeler engine.Labeler,
	cacheProvider cache.Provider,
	briefingTTL time.Duration,
	weakEdge float64,
) *InvestigationService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if weakEdge <= 0 {
		weakEdge = 0.5
	}
	return &InvestigationService{
		logger:      logger,
		store:       st,
		ingestor:    ingestor,
		pathEngine:  pathEngine,
		labeler:     labeler,
		cache:       cacheProvider,
		briefingTTL: briefingTTL,
		weakEdge:    weakEdge,
		latencies:   utils.NewLatencyTracker(1024),
	}
}

// Create registers a new investigation.
func (s *InvestigationService) Create(ctx context.Context, title, hypothesis string) (models.Investigation, error) {
	id, err := utils.NewInvestigationID()
	if err != nil {
		return models.Investigation{}, err
	}
	now := time.Now().UTC()
	inv := models.Investigation{
		ID:         id,
		Title:      title,
		Hypothesis: hypothesis,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateInvestigation(ctx, inv); err != nil {
		return models.Investigation{}, err
	}
	return inv, nil
}

// Get loads one investigation's metadata.
func (s *InvestigationService) Get(ctx context.Context, id string) (models.Investigation, error) {
	return s.store.GetInvestigation(ctx, id)
}

// List returns all investigations, newest first.
func (s *InvestigationService) List(ctx context.Context) ([]models.Investigation, error) {
	return s.store.ListInvestigations(ctx)
}

// Ingest persists a batch of signals and recomputes the investigation's
// graph and hypothesis threads. Records without an id are skipped and
// reported, never silently dropped with the batch.
func (s *InvestigationService) Ingest(ctx context.Context, investigationID string, signals []models.Signal) (IngestResult, error) {
	if _, err := s.store.GetInvestigation(ctx, investigationID); err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{}
	valid := make([]models.Signal, 0, len(signals))
	for i, sig := range signals {
		if err := engine.ValidateEvidence(sig); err != nil {
			s.logger.Warn("skipping invalid signal",
				slog.String("investigation", investigationID), slog.Int("index", i),
				slog.Any("error", err))
			result.Skipped = append(result.Skipped, sig.Source)
			continue
		}
		if sig.CreatedAt.IsZero() {
			sig.CreatedAt = time.Now().UTC()
		}
		valid = append(valid, sig)
	}
	metrics.ObserveSkippedSignals(len(result.Skipped))

	stored, err := s.store.SaveSignals(ctx, investigationID, valid)
	if err != nil {
		metrics.ObserveIngest(0, metrics.OutcomeError)
		return IngestResult{}, err
	}
	result.Stored = stored

	start := time.Now()
	graph, err := s.recompute(ctx, investigationID, true)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveIngest(duration, metrics.OutcomeError)
		return IngestResult{}, err
	}
	metrics.ObserveIngest(duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("recompute latency",
			slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	now := time.Now().UTC()
	if err := s.store.TouchInvestigation(ctx, investigationID, now); err != nil {
		s.logger.Warn("failed to touch investigation", slog.Any("error", err))
	}
	if err := s.cache.Del(ctx, briefingCacheKey(investigationID)); err != nil {
		s.logger.Debug("briefing cache invalidation failed", slog.Any("error", err))
	}

	result.Graph = graph
	return result, nil
}

// Graph rebuilds the investigation's full graph from stored evidence.
func (s *InvestigationService) Graph(ctx context.Context, investigationID string) (models.Graph, error) {
	if _, err := s.store.GetInvestigation(ctx, investigationID); err != nil {
		return models.Graph{}, err
	}
	return s.recompute(ctx, investigationID, false)
}

// Briefing derives the read-only briefing payload, cache-aside.
func (s *InvestigationService) Briefing(ctx context.Context, investigationID string) (models.Briefing, error) {
	inv, err := s.store.GetInvestigation(ctx, investigationID)
	if err != nil {
		return models.Briefing{}, err
	}

	key := briefingCacheKey(investigationID)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var briefing models.Briefing
		if err := json.Unmarshal(cached, &briefing); err == nil {
			return briefing, nil
		}
	}

	graph, err := s.recompute(ctx, investigationID, false)
	if err != nil {
		return models.Briefing{}, err
	}

	briefing := engine.BuildBriefing(inv, graph, engine.BriefingOptions{WeakEdgeThreshold: s.weakEdge})
	metrics.ObserveBriefing()

	if body, err := json.Marshal(briefing); err == nil {
		if err := s.cache.Set(ctx, key, body, s.briefingTTL); err != nil {
			s.logger.Debug("briefing cache store failed", slog.Any("error", err))
		}
	}
	return briefing, nil
}

// recompute is the full pure pipeline over the accumulated evidence. When
// persist is set, the reconciled lifecycle state is written back as the new
// prior for the next run.
func (s *InvestigationService) recompute(ctx context.Context, investigationID string, persist bool) (models.Graph, error) {
	signals, err := s.store.ListSignals(ctx, investigationID)
	if err != nil {
		return models.Graph{}, err
	}

	evidence := make([]models.Evidence, len(signals))
	for i, sig := range signals {
		evidence[i] = sig
	}

	graph, err := s.ingestor.BuildGraph(evidence)
	if err != nil {
		return models.Graph{}, err
	}
	if err := graph.Validate(); err != nil {
		return models.Graph{}, utils.NewAppError("services.recompute", "built graph failed validation", err)
	}

	paths, err := s.pathEngine.BuildPaths(graph)
	if err != nil {
		return models.Graph{}, err
	}

	prev, err := s.store.LoadPathState(ctx, investigationID)
	if err != nil {
		return models.Graph{}, err
	}
	paths = engine.ReconcilePaths(s.logger, prev, paths, graph)
	s.pathEngine.ApplyLabels(ctx, s.labeler, paths, graph)
	graph.Paths = paths

	if persist {
		if err := s.store.SavePathState(ctx, investigationID, paths, time.Now().UTC()); err != nil {
			return models.Graph{}, err
		}
	}
	return graph, nil
}

// RecomputeP95 exposes the current recompute latency percentile.
func (s *InvestigationService) RecomputeP95() time.Duration {
	return s.latencies.Percentile(95)
}

func briefingCacheKey(investigationID string) string {
	return "briefing:" + investigationID
}

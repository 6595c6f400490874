package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
	"github.com/inquestlabs/inquest-engine/internal/utils"
)

// Ingestor converts an evidence stream into graph nodes and edges.
type Ingestor struct {
	logger *slog.Logger
	rules  *CredibilityRules
}

// NewIngestor constructs an Ingestor. rules may be nil when no credibility
// rule pack is configured.
func NewIngestor(logger *slog.Logger, rules *CredibilityRules) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{logger: logger, rules: rules}
}

// ValidateEvidence classifies records ingestion cannot accept. The returned
// error wraps utils.ErrInvalidRecord so callers can tell record-level skips
// apart from structural failures.
func ValidateEvidence(ev models.Evidence) error {
	if ev == nil {
		return utils.NewAppError("engine.ValidateEvidence", "nil evidence record", utils.ErrInvalidRecord)
	}
	if ev.EvidenceID() == "" {
		return utils.NewAppError("engine.ValidateEvidence", "evidence record without id", utils.ErrInvalidRecord)
	}
	return nil
}

// EvidenceTime returns the ordering timestamp for a record: the observation
// date when present, the ingestion timestamp otherwise. The fallback is used
// for ordering only and never becomes the node's date.
func EvidenceTime(ev models.Evidence) time.Time {
	if t, ok := ev.Date(); ok {
		return t
	}
	return ev.IngestedAt()
}

// EvidenceLess is the global evidence ordering: ascending by EvidenceTime,
// ties broken by id so repeated runs sort identically.
func EvidenceLess(a, b models.Evidence) bool {
	at, bt := EvidenceTime(a), EvidenceTime(b)
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return a.EvidenceID() < b.EvidenceID()
}

// BuildGraph derives nodes and edges from the evidence stream. Records with
// a missing id are skipped and logged; the rest of the batch proceeds. The
// returned graph carries no paths; run the path engine over it next.
func (in *Ingestor) BuildGraph(evidence []models.Evidence) (models.Graph, error) {
	sorted := make([]models.Evidence, 0, len(evidence))
	for _, ev := range evidence {
		if err := ValidateEvidence(ev); err != nil {
			label := ""
			if ev != nil {
				label = ev.EvidenceLabel()
			}
			in.logger.Warn("skipping evidence record",
				slog.String("label", label), slog.Any("error", err))
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return EvidenceLess(sorted[i], sorted[j]) })

	var g models.Graph
	index := make(map[string]int, len(sorted))
	chain := make([]string, 0, len(sorted))

	for _, ev := range sorted {
		id := ev.EvidenceID()
		conf := in.confidenceFor(ev)

		if pos, ok := index[id]; ok {
			// Idempotent upsert: same id refines the existing node.
			node := &g.Nodes[pos]
			node.Confidence = conf
			if url := ev.EvidenceURL(); url != "" && !containsString(node.SourceURLs, url) {
				node.SourceURLs = append(node.SourceURLs, url)
			}
			continue
		}

		node := models.Node{
			ID:         id,
			Type:       ev.EvidenceType(),
			Label:      ev.EvidenceLabel(),
			Confidence: conf,
		}
		if t, ok := ev.Date(); ok {
			date := t
			node.Date = &date
		}
		if url := ev.EvidenceURL(); url != "" {
			node.SourceURLs = []string{url}
		}
		index[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, node)

		if len(chain) > 0 {
			prev := g.Nodes[index[chain[len(chain)-1]]]
			g.Edges = append(g.Edges, deriveEdge(prev, node, ev.EvidencePolarity()))
		}
		chain = append(chain, id)
	}

	return g, nil
}

func (in *Ingestor) confidenceFor(ev models.Evidence) float64 {
	if sig, ok := ev.(models.Signal); ok && in.rules != nil {
		if tier, ok := in.rules.TierFor(sig); ok {
			return tier.Confidence()
		}
	}
	return ev.BaseConfidence()
}

// deriveEdge links two temporally consecutive nodes. Strength comes from the
// target record's polarity band, scaled inside the band by the target's
// confidence; edge confidence is the mean of the endpoint confidences.
func deriveEdge(from, to models.Node, polarity models.Polarity) models.Edge {
	var relation models.Relation
	var strength float64
	switch polarity {
	case models.PolarityWeakens:
		relation = models.RelationWeakens
		strength = 0.2 + 0.2*to.Confidence
	case models.PolarityNeutral:
		relation = models.RelationInfluences
		strength = 0.4 + 0.2*to.Confidence
	default:
		relation = models.RelationSupports
		strength = 0.5 + 0.45*to.Confidence
	}

	return models.Edge{
		From:       from.ID,
		To:         to.ID,
		Relation:   relation,
		Strength:   strength,
		Confidence: (from.Confidence + to.Confidence) / 2,
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

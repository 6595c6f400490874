package engine

import (
	"log/slog"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

// ReconcilePaths merges freshly computed paths with previously persisted
// state, enforcing the monotonic lifecycle: a thread moves only
// active -> weak -> dead, weak -> active on re-strengthening, and a dead
// thread revives only when new supporting evidence outweighs the
// contradiction that killed it. Node sequences and ordering are taken from
// the computed paths untouched; only status may be adjusted.
func ReconcilePaths(logger *slog.Logger, prev, next []models.Path, g models.Graph) []models.Path {
	if logger == nil {
		logger = slog.Default()
	}
	if len(prev) == 0 {
		return next
	}

	prevByID := make(map[string]models.Path, len(prev))
	for _, p := range prev {
		prevByID[p.ID] = p
	}

	out := make([]models.Path, len(next))
	for i, computed := range next {
		before, ok := prevByID[computed.ID]
		if !ok {
			// A thread that grew keeps its identity through the prefix match:
			// the old sequence is append-only, the new one extends it.
			before, ok = matchByPrefix(prev, computed)
		}
		if !ok {
			out[i] = computed
			continue
		}
		out[i] = reconcileOne(logger, before, computed, g)
	}
	return out
}

func matchByPrefix(prev []models.Path, computed models.Path) (models.Path, bool) {
	var best models.Path
	found := false
	for _, p := range prev {
		if len(p.NodeIDs) >= len(computed.NodeIDs) {
			continue
		}
		if !isPrefix(p.NodeIDs, computed.NodeIDs) {
			continue
		}
		if !found || len(p.NodeIDs) > len(best.NodeIDs) {
			best = p
			found = true
		}
	}
	return best, found
}

func isPrefix(short, long []string) bool {
	if len(short) > len(long) {
		return false
	}
	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}
	return true
}

func reconcileOne(logger *slog.Logger, before, computed models.Path, g models.Graph) models.Path {
	switch before.Status {
	case models.PathDead:
		// Revival needs new supporting evidence that outweighs the old
		// contradiction: a non-dead recomputation alone is not enough.
		if computed.Status != models.PathDead && computed.Confidence > before.Confidence {
			logger.Info("dead thread revived by new evidence",
				slog.String("path", computed.ID),
				slog.Float64("confidence", computed.Confidence))
			return computed
		}
		computed.Status = models.PathDead
		return computed

	case models.PathActive:
		// Demoting an active thread requires counter-evidence somewhere on
		// it. A recomputation over supporting-only additions can shift the
		// recency weighting, but that alone never degrades the status.
		if computed.Status != models.PathActive && !hasContradiction(computed, g) {
			computed.Status = models.PathActive
		}
		return computed

	default:
		return computed
	}
}

// hasContradiction reports whether any weakens edge lies along the path.
func hasContradiction(p models.Path, g models.Graph) bool {
	weakens := make(map[[2]string]struct{})
	for _, e := range g.Edges {
		if e.Relation == models.RelationWeakens {
			weakens[[2]string{e.From, e.To}] = struct{}{}
		}
	}
	for i := 0; i+1 < len(p.NodeIDs); i++ {
		if _, ok := weakens[[2]string{p.NodeIDs[i], p.NodeIDs[i+1]}]; ok {
			return true
		}
	}
	return false
}

// Package patterns mines recurring structure out of investigation history.
package patterns

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

// Case pairs one investigation with its current graph.
type Case struct {
	InvestigationID string
	Graph           models.Graph
	UpdatedAt       time.Time
}

// Miner surfaces actors and facts that keep appearing at turning points
// across investigations. An actor central to several unrelated cases is
// itself a lead worth flagging.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine aggregates turning-point nodes by label across the given cases and
// returns the labels seen in more than one investigation, most frequent
// first.
func (m *Miner) Mine(cases []Case) []models.RecurringActor {
	if len(cases) == 0 {
		return nil
	}

	type aggregate struct {
		investigations map[string]struct{}
		occurrences    int
		confidenceSum  float64
		lastSeen       time.Time
	}
	byLabel := make(map[string]*aggregate)

	for _, c := range cases {
		for _, node := range turningPointNodes(c.Graph) {
			key := strings.ToLower(strings.TrimSpace(node.Label))
			if key == "" {
				continue
			}
			agg, ok := byLabel[key]
			if !ok {
				agg = &aggregate{investigations: make(map[string]struct{})}
				byLabel[key] = agg
			}
			agg.investigations[c.InvestigationID] = struct{}{}
			agg.occurrences++
			agg.confidenceSum += node.Confidence
			if c.UpdatedAt.After(agg.lastSeen) {
				agg.lastSeen = c.UpdatedAt
			}
		}
	}

	actors := make([]models.RecurringActor, 0, len(byLabel))
	for label, agg := range byLabel {
		if len(agg.investigations) < 2 {
			continue
		}
		ids := make([]string, 0, len(agg.investigations))
		for id := range agg.investigations {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		actors = append(actors, models.RecurringActor{
			Label:          label,
			Investigations: ids,
			Occurrences:    agg.occurrences,
			AvgConfidence:  models.Percent(agg.confidenceSum / float64(agg.occurrences)),
			LastSeen:       agg.lastSeen,
		})
	}

	sort.Slice(actors, func(i, j int) bool {
		if actors[i].Occurrences != actors[j].Occurrences {
			return actors[i].Occurrences > actors[j].Occurrences
		}
		return actors[i].Label < actors[j].Label
	})

	m.logger.Debug("pattern mining complete",
		slog.Int("cases", len(cases)), slog.Int("recurring", len(actors)))
	return actors
}

// turningPointNodes picks the nodes shared across threads or sitting at a
// branch/merge, mirroring how the briefing ranks turning points.
func turningPointNodes(g models.Graph) []models.Node {
	pathCount := make(map[string]int)
	for _, p := range g.Paths {
		for _, id := range p.NodeIDs {
			pathCount[id]++
		}
	}
	inDeg := make(map[string]int)
	outDeg := make(map[string]int)
	for _, e := range g.Edges {
		outDeg[e.From]++
		inDeg[e.To]++
	}

	var nodes []models.Node
	for _, n := range g.Nodes {
		if pathCount[n.ID] >= 2 || inDeg[n.ID] > 1 || outDeg[n.ID] > 1 {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

const (
	maxKeyNodes      = 4
	maxTurningPoints = 4
	lowConfidence    = 0.5
)

// BriefingOptions tunes briefing derivation. The zero value is usable.
type BriefingOptions struct {
	// WeakEdgeThreshold flags a primary-path edge as uncertain.
	WeakEdgeThreshold float64
	// Now stamps the payload; the zero value falls back to time.Now so the
	// derivation itself stays a pure function under test.
	Now time.Time
}

// BuildBriefing derives the read-only briefing payload from the current
// graph. It never fails: a graph with zero paths yields a null primary path
// and empty lists, and the payload always carries the fixed disclaimer.
func BuildBriefing(inv models.Investigation, g models.Graph, opts BriefingOptions) models.Briefing {
	if opts.WeakEdgeThreshold <= 0 {
		opts.WeakEdgeThreshold = 0.5
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	briefing := models.Briefing{
		InvestigationID:  inv.ID,
		Summary:          summarise(inv, g),
		TurningPoints:    []models.TurningPoint{},
		AlternativePaths: []models.AlternativePath{},
		Uncertainty:      deriveUncertainty(g, opts.WeakEdgeThreshold),
		Disclaimer:       models.BriefingDisclaimer,
		GeneratedAt:      opts.Now,
	}

	primary, ok := selectPrimary(g)
	if ok {
		briefing.PrimaryPath = &models.PrimaryPath{
			ID:         primary.ID,
			Label:      primary.HypothesisLabel,
			Status:     primary.Status,
			Confidence: models.Percent(primary.Confidence),
			KeyNodes:   sampleKeyNodes(primary, g),
		}
	}

	briefing.TurningPoints = deriveTurningPoints(g)
	for _, p := range g.Paths {
		if ok && p.ID == primary.ID {
			continue
		}
		briefing.AlternativePaths = append(briefing.AlternativePaths, models.AlternativePath{
			ID:         p.ID,
			Label:      p.HypothesisLabel,
			Status:     p.Status,
			Confidence: models.Percent(p.Confidence),
		})
	}

	return briefing
}

func summarise(inv models.Investigation, g models.Graph) string {
	subject := inv.Hypothesis
	if subject == "" {
		subject = inv.Title
	}
	if subject == "" {
		return fmt.Sprintf("%d evidence nodes across %d hypothesis threads", len(g.Nodes), len(g.Paths))
	}
	return fmt.Sprintf("%s: %d evidence nodes across %d hypothesis threads", subject, len(g.Nodes), len(g.Paths))
}

// selectPrimary picks the highest-confidence path. Ties break by longer node
// sequence, then most recent last-node date, then smallest id, so the choice
// is deterministic under test.
func selectPrimary(g models.Graph) (models.Path, bool) {
	if len(g.Paths) == 0 {
		return models.Path{}, false
	}
	best := g.Paths[0]
	for _, p := range g.Paths[1:] {
		if primaryLess(best, p, g) {
			best = p
		}
	}
	return best, true
}

// primaryLess reports whether b outranks a as the primary candidate.
func primaryLess(a, b models.Path, g models.Graph) bool {
	if b.Confidence != a.Confidence {
		return b.Confidence > a.Confidence
	}
	if len(b.NodeIDs) != len(a.NodeIDs) {
		return len(b.NodeIDs) > len(a.NodeIDs)
	}
	at, bt := lastNodeDate(a, g), lastNodeDate(b, g)
	if !bt.Equal(at) {
		return bt.After(at)
	}
	return b.ID < a.ID
}

func lastNodeDate(p models.Path, g models.Graph) time.Time {
	if len(p.NodeIDs) == 0 {
		return time.Time{}
	}
	node, ok := g.Node(p.NodeIDs[len(p.NodeIDs)-1])
	if !ok || node.Date == nil {
		return time.Time{}
	}
	return *node.Date
}

// sampleKeyNodes keeps the briefing compact regardless of thread length:
// short paths are shown whole, long ones as first / ~33% / ~66% / last.
func sampleKeyNodes(p models.Path, g models.Graph) []models.KeyNode {
	pick := func(ids []string) []models.KeyNode {
		nodes := make([]models.KeyNode, 0, len(ids))
		for _, id := range ids {
			if n, ok := g.Node(id); ok {
				nodes = append(nodes, models.KeyNode{
					NodeID:     n.ID,
					Label:      n.Label,
					Date:       n.Date,
					Confidence: models.Percent(n.Confidence),
				})
			}
		}
		return nodes
	}

	if len(p.NodeIDs) <= maxKeyNodes {
		return pick(p.NodeIDs)
	}

	last := len(p.NodeIDs) - 1
	indices := []int{0, last / 3, 2 * last / 3, last}
	ids := make([]string, 0, maxKeyNodes)
	seen := make(map[int]struct{}, maxKeyNodes)
	for _, idx := range indices {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		ids = append(ids, p.NodeIDs[idx])
	}
	return pick(ids)
}

// deriveTurningPoints finds nodes shared across threads or sitting at a
// branch/merge, ranked by confidence.
func deriveTurningPoints(g models.Graph) []models.TurningPoint {
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

	points := make([]models.TurningPoint, 0)
	for _, n := range g.Nodes {
		if pathCount[n.ID] < 2 && inDeg[n.ID] <= 1 && outDeg[n.ID] <= 1 {
			continue
		}
		points = append(points, models.TurningPoint{
			NodeID:     n.ID,
			Label:      n.Label,
			Date:       n.Date,
			Confidence: models.Percent(n.Confidence),
			PathCount:  pathCount[n.ID],
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Confidence != points[j].Confidence {
			return points[i].Confidence > points[j].Confidence
		}
		return points[i].NodeID < points[j].NodeID
	})
	if len(points) > maxTurningPoints {
		points = points[:maxTurningPoints]
	}
	return points
}

func deriveUncertainty(g models.Graph, weakEdge float64) models.Uncertainty {
	u := models.Uncertainty{LowConfidenceNodes: []string{}}
	for _, n := range g.Nodes {
		if n.Confidence < lowConfidence {
			u.LowConfidenceNodes = append(u.LowConfidenceNodes, n.ID)
		}
	}
	sort.Strings(u.LowConfidenceNodes)

	for _, p := range g.Paths {
		if p.Status == models.PathDead {
			u.HasContradictions = true
			break
		}
	}
	if !u.HasContradictions {
		if primary, ok := selectPrimary(g); ok {
			edgeIdx := make(map[[2]string]models.Edge, len(g.Edges))
			for _, e := range g.Edges {
				edgeIdx[[2]string{e.From, e.To}] = e
			}
			for i := 0; i+1 < len(primary.NodeIDs); i++ {
				if e, ok := edgeIdx[[2]string{primary.NodeIDs[i], primary.NodeIDs[i+1]}]; ok && e.Strength < weakEdge {
					u.HasContradictions = true
					break
				}
			}
		}
	}
	return u
}

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
	"github.com/inquestlabs/inquest-engine/internal/utils"
)

// Labeler produces a short human-readable hypothesis label for a path. It is
// an optional capability: path computation never blocks on it, and any
// failure falls back to the first node's label.
type Labeler interface {
	Label(ctx context.Context, path models.Path, g models.Graph) (string, error)
}

// PathConfig bounds and tunes path enumeration and scoring.
type PathConfig struct {
	// MaxPathLength caps the node count per enumerated path, bounding
	// combinatorial blow-up on dense graphs.
	MaxPathLength int
	// DecisiveWeakenThreshold: a weakens edge stronger than this kills the
	// path regardless of its numeric score.
	DecisiveWeakenThreshold float64
	// WeakEdgeThreshold marks an edge as uncertain for briefing purposes.
	WeakEdgeThreshold float64
	// RecencyDecay in (0,1] discounts earlier edges; the most recent edge
	// always carries full weight.
	RecencyDecay    float64
	ActiveThreshold float64
	WeakThreshold   float64
}

// DefaultPathConfig returns the tuning used in production.
func DefaultPathConfig() PathConfig {
	return PathConfig{
		MaxPathLength:           12,
		DecisiveWeakenThreshold: 0.6,
		WeakEdgeThreshold:       0.5,
		RecencyDecay:            0.85,
		ActiveThreshold:         0.65,
		WeakThreshold:           0.35,
	}
}

func (c PathConfig) normalised() PathConfig {
	if c.MaxPathLength <= 0 {
		c.MaxPathLength = 12
	}
	if c.DecisiveWeakenThreshold <= 0 {
		c.DecisiveWeakenThreshold = 0.6
	}
	if c.WeakEdgeThreshold <= 0 {
		c.WeakEdgeThreshold = 0.5
	}
	if c.RecencyDecay <= 0 || c.RecencyDecay > 1 {
		c.RecencyDecay = 0.85
	}
	if c.ActiveThreshold <= 0 {
		c.ActiveThreshold = 0.65
	}
	if c.WeakThreshold <= 0 {
		c.WeakThreshold = 0.35
	}
	return c
}

// PathEngine enumerates, scores and classifies hypothesis threads over a
// node/edge graph. It holds no state across calls: re-running it on an
// unchanged graph yields identical paths.
type PathEngine struct {
	logger *slog.Logger
	cfg    PathConfig
}

// NewPathEngine constructs a PathEngine.
func NewPathEngine(logger *slog.Logger, cfg PathConfig) *PathEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PathEngine{logger: logger, cfg: cfg.normalised()}
}

// BuildPaths enumerates maximal root-to-sink threads, scores them with
// recency-weighted edge quality, and classifies each as active, weak or
// dead. An empty graph yields an empty slice, never an error; a dangling
// edge endpoint is a structural error.
func (e *PathEngine) BuildPaths(g models.Graph) ([]models.Path, error) {
	nodeIdx := make(map[string]models.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeIdx[n.ID] = n
	}
	for _, edge := range g.Edges {
		if _, ok := nodeIdx[edge.From]; !ok {
			return nil, utils.NewAppError("engine.BuildPaths", "edge endpoint "+edge.From+" not in graph", utils.ErrStructural)
		}
		if _, ok := nodeIdx[edge.To]; !ok {
			return nil, utils.NewAppError("engine.BuildPaths", "edge endpoint "+edge.To+" not in graph", utils.ErrStructural)
		}
	}

	edges := e.dropCycleEdges(g)

	adjacency := make(map[string][]models.Edge, len(nodeIdx))
	inDegree := make(map[string]int, len(nodeIdx))
	edgeIdx := make(map[[2]string]models.Edge, len(edges))
	for _, edge := range edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge)
		inDegree[edge.To]++
		edgeIdx[[2]string{edge.From, edge.To}] = edge
	}
	for from := range adjacency {
		out := adjacency[from]
		sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	}

	roots := make([]string, 0)
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			roots = append(roots, n.ID)
		}
	}
	sort.Strings(roots)

	var sequences [][]string
	for _, root := range roots {
		sequences = e.walk(root, adjacency, []string{root}, sequences)
	}
	sequences = dropSubSequences(sequences)

	paths := make([]models.Path, 0, len(sequences))
	for _, seq := range sequences {
		paths = append(paths, e.scorePath(seq, nodeIdx, edgeIdx))
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Confidence != paths[j].Confidence {
			return paths[i].Confidence > paths[j].Confidence
		}
		return paths[i].ID < paths[j].ID
	})
	return paths, nil
}

// walk performs the depth-bounded DFS from node at the tail of current,
// recording the sequence at every sink or when the length cap is hit.
func (e *PathEngine) walk(node string, adjacency map[string][]models.Edge, current []string, acc [][]string) [][]string {
	out := adjacency[node]
	if len(out) == 0 || len(current) >= e.cfg.MaxPathLength {
		acc = append(acc, append([]string(nil), current...))
		return acc
	}
	for _, edge := range out {
		acc = e.walk(edge.To, adjacency, append(current, edge.To), acc)
	}
	return acc
}

// dropCycleEdges removes back edges found via DFS coloring. Evidence
// pipelines occasionally emit contradictory orderings; a cycle is treated as
// data corruption on the offending edge, not a fatal condition.
func (e *PathEngine) dropCycleEdges(g models.Graph) []models.Edge {
	adjacency := make(map[string][]models.Edge, len(g.Nodes))
	for _, edge := range g.Edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge)
	}
	for from := range adjacency {
		out := adjacency[from]
		sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	dropped := make(map[[2]string]struct{})

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, edge := range adjacency[id] {
			switch color[edge.To] {
			case white:
				visit(edge.To)
			case gray:
				dropped[[2]string{edge.From, edge.To}] = struct{}{}
				e.logger.Warn("dropping cycle edge",
					slog.String("from", edge.From), slog.String("to", edge.To))
			}
		}
		color[id] = black
	}

	ordered := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ordered = append(ordered, n.ID)
	}
	sort.Strings(ordered)
	for _, id := range ordered {
		if color[id] == white {
			visit(id)
		}
	}

	if len(dropped) == 0 {
		return g.Edges
	}
	kept := make([]models.Edge, 0, len(g.Edges))
	for _, edge := range g.Edges {
		if _, gone := dropped[[2]string{edge.From, edge.To}]; gone {
			continue
		}
		kept = append(kept, edge)
	}
	return kept
}

// dropSubSequences discards every sequence that is a strict sub-sequence of
// another. This keeps a fork-then-merge shape as two distinct threads
// instead of collapsing them into one.
func dropSubSequences(sequences [][]string) [][]string {
	kept := make([][]string, 0, len(sequences))
	for i, seq := range sequences {
		subsumed := false
		for j, other := range sequences {
			if i == j || len(seq) > len(other) {
				continue
			}
			if len(seq) == len(other) && j > i {
				continue
			}
			if isSubSequence(seq, other) && !equalSequence(seq, other) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, seq)
		}
	}
	return kept
}

func isSubSequence(sub, super []string) bool {
	i := 0
	for _, id := range super {
		if i < len(sub) && sub[i] == id {
			i++
		}
	}
	return i == len(sub)
}

func equalSequence(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// scorePath computes the recency-weighted confidence and lifecycle status
// for one node sequence. A single-node path inherits its node's confidence.
func (e *PathEngine) scorePath(seq []string, nodes map[string]models.Node, edges map[[2]string]models.Edge) models.Path {
	path := models.Path{
		ID:      PathID(seq),
		NodeIDs: seq,
	}
	if first, ok := nodes[seq[0]]; ok {
		path.HypothesisLabel = first.Label
	}

	if len(seq) == 1 {
		path.Confidence = nodes[seq[0]].Confidence
		path.Status = e.classify(path.Confidence, nil)
		return path
	}

	pathEdges := make([]models.Edge, 0, len(seq)-1)
	for i := 0; i+1 < len(seq); i++ {
		if edge, ok := edges[[2]string{seq[i], seq[i+1]}]; ok {
			pathEdges = append(pathEdges, edge)
		}
	}

	var weighted, totalWeight float64
	for i, edge := range pathEdges {
		// Latest edge carries full weight; earlier ones decay, so a thread
		// whose newest link is weak is penalised hardest.
		weight := math.Pow(e.cfg.RecencyDecay, float64(len(pathEdges)-1-i))
		quality := (edge.Strength + edge.Confidence) / 2
		weighted += quality * weight
		totalWeight += weight
	}
	if totalWeight > 0 {
		path.Confidence = weighted / totalWeight
	}
	path.Status = e.classify(path.Confidence, pathEdges)
	return path
}

func (e *PathEngine) classify(score float64, pathEdges []models.Edge) models.PathStatus {
	for _, edge := range pathEdges {
		// Explicit falsification dominates soft averaging.
		if edge.Relation == models.RelationWeakens && edge.Strength > e.cfg.DecisiveWeakenThreshold {
			return models.PathDead
		}
	}
	switch {
	case score >= e.cfg.ActiveThreshold:
		return models.PathActive
	case score >= e.cfg.WeakThreshold:
		return models.PathWeak
	default:
		return models.PathDead
	}
}

// PathID derives a stable identifier from the node-id sequence, so re-running
// the engine on an extended graph never renames an unchanged thread.
func PathID(nodeIDs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(nodeIDs, "\x1f")))
	return hex.EncodeToString(sum[:])[:16]
}

// ApplyLabels overrides hypothesis labels via the external labeler,
// best-effort. Each path gets a bounded slice of the context's remaining
// time; failures keep the deterministic fallback already on the path.
func (e *PathEngine) ApplyLabels(ctx context.Context, labeler Labeler, paths []models.Path, g models.Graph) {
	if labeler == nil {
		return
	}
	for i := range paths {
		labelCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		label, err := labeler.Label(labelCtx, paths[i], g)
		cancel()
		if err != nil || label == "" {
			e.logger.Debug("labeler fallback", slog.String("path", paths[i].ID), slog.Any("error", err))
			continue
		}
		paths[i].HypothesisLabel = label
	}
}

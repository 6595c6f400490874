package models

import (
	"fmt"
	"math"
	"time"
)

// NodeType enumerates the canonical vertex categories.
type NodeType string

const (
	NodeFact     NodeType = "fact"
	NodeEvent    NodeType = "event"
	NodeActor    NodeType = "actor"
	NodeResource NodeType = "resource"
	NodeDecision NodeType = "decision"
	NodeImpact   NodeType = "impact"
)

// Relation enumerates directed edge kinds between nodes.
type Relation string

const (
	RelationCauses     Relation = "causes"
	RelationInfluences Relation = "influences"
	RelationFunds      Relation = "funds"
	RelationRestricts  Relation = "restricts"
	RelationTriggers   Relation = "triggers"
	RelationSupports   Relation = "supports"
	RelationWeakens    Relation = "weakens"
)

// Node is one canonical fact/event/actor derived from exactly one evidence
// record. Confidence is kept in [0,1] internally; use Percent at the display
// boundary.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Label      string     `json:"label"`
	Date       *time.Time `json:"date,omitempty"`
	Confidence float64    `json:"confidence"`
	SourceURLs []string   `json:"source_urls,omitempty"`
}

// Edge is a directed relation between two nodes. Strength expresses how
// strong the causal/evidentiary link is; Confidence is the mean of the
// endpoint node confidences.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Relation   Relation `json:"relation"`
	Strength   float64  `json:"strength"`
	Confidence float64  `json:"confidence"`
}

// Graph is the aggregate all readers consume. It owns no behaviour beyond
// structural validation; components produce new instances rather than
// mutating one in place.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Paths []Path `json:"paths"`
}

// Percent converts an internal [0,1] confidence to the integer percentage
// used everywhere outside the engine. This is the single conversion point.
func Percent(confidence float64) int {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return int(math.Round(confidence * 100))
}

// Validate checks the aggregate's structural invariants: unique node ids,
// edge endpoints that exist, and path node ids that exist.
func (g Graph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if _, ok := ids[n.ID]; ok {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if _, ok := ids[e.From]; !ok {
			return fmt.Errorf("edge %s->%s references unknown node %q", e.From, e.To, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return fmt.Errorf("edge %s->%s references unknown node %q", e.From, e.To, e.To)
		}
	}
	for _, p := range g.Paths {
		for _, id := range p.NodeIDs {
			if _, ok := ids[id]; !ok {
				return fmt.Errorf("path %s references unknown node %q", p.ID, id)
			}
		}
	}
	return nil
}

// Node returns the node with the given id, if present.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

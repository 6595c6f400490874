package patterns

import (
	"testing"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

func caseWithMergeNode(invID, label string, updated time.Time) Case {
	g := models.Graph{
		Nodes: []models.Node{
			{ID: "a", Label: "source one", Confidence: 0.8},
			{ID: "b", Label: "source two", Confidence: 0.8},
			{ID: "m", Label: label, Confidence: 0.9},
		},
		Edges: []models.Edge{
			{From: "a", To: "m", Relation: models.RelationSupports},
			{From: "b", To: "m", Relation: models.RelationSupports},
		},
		Paths: []models.Path{
			{ID: "p1", NodeIDs: []string{"a", "m"}},
			{ID: "p2", NodeIDs: []string{"b", "m"}},
		},
	}
	return Case{InvestigationID: invID, Graph: g, UpdatedAt: updated}
}

func TestMineFindsRecurringActors(t *testing.T) {
	miner := NewMiner(nil)
	t1 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	actors := miner.Mine([]Case{
		caseWithMergeNode("inv1", "Meridian Holdings", t1),
		caseWithMergeNode("inv2", "Meridian Holdings", t2),
	})

	if len(actors) != 1 {
		t.Fatalf("expected 1 recurring actor, got %d", len(actors))
	}
	actor := actors[0]
	if actor.Label != "meridian holdings" {
		t.Fatalf("labels aggregate case-insensitively, got %q", actor.Label)
	}
	if len(actor.Investigations) != 2 || actor.Occurrences != 2 {
		t.Fatalf("aggregate mismatch: %+v", actor)
	}
	if !actor.LastSeen.Equal(t2) {
		t.Fatalf("last seen must be the newest case, got %v", actor.LastSeen)
	}
	if actor.AvgConfidence != 90 {
		t.Fatalf("avg confidence as percent, got %d", actor.AvgConfidence)
	}
}

func TestMineIgnoresSingleInvestigationActors(t *testing.T) {
	miner := NewMiner(nil)
	now := time.Now()

	actors := miner.Mine([]Case{
		caseWithMergeNode("inv1", "Meridian Holdings", now),
		caseWithMergeNode("inv2", "Unrelated Corp", now),
	})
	if len(actors) != 0 {
		t.Fatalf("a label seen in one investigation is not a pattern: %+v", actors)
	}
}

func TestMineEmptyInput(t *testing.T) {
	miner := NewMiner(nil)
	if actors := miner.Mine(nil); len(actors) != 0 {
		t.Fatalf("no cases, no patterns: %+v", actors)
	}
}

func TestMineOrdersByOccurrences(t *testing.T) {
	miner := NewMiner(nil)
	now := time.Now()

	cases := []Case{
		caseWithMergeNode("inv1", "Alpha", now),
		caseWithMergeNode("inv2", "Alpha", now),
		caseWithMergeNode("inv3", "Alpha", now),
		caseWithMergeNode("inv4", "Beta", now),
		caseWithMergeNode("inv5", "Beta", now),
	}

	actors := miner.Mine(cases)
	if len(actors) != 2 {
		t.Fatalf("expected 2 recurring actors, got %d", len(actors))
	}
	if actors[0].Label != "alpha" || actors[1].Label != "beta" {
		t.Fatalf("most frequent first: %+v", actors)
	}
}

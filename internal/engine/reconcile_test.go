package engine

import (
	"testing"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

func TestReconcileNoPreviousState(t *testing.T) {
	next := []models.Path{{ID: "p1", NodeIDs: []string{"a"}, Status: models.PathActive, Confidence: 0.8}}
	out := ReconcilePaths(nil, nil, next, models.Graph{})
	if len(out) != 1 || out[0].Status != models.PathActive {
		t.Fatalf("first reconcile passes computed paths through: %+v", out)
	}
}

func TestReconcileActiveHoldsWithoutContradiction(t *testing.T) {
	g := models.Graph{
		Nodes: []models.Node{node("a", 0.8), node("b", 0.8)},
		Edges: []models.Edge{supports("a", "b", 0.9, 0.8)},
	}
	prev := []models.Path{{ID: PathID([]string{"a", "b"}), NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.8}}
	// Recency shifts dropped the score, but nothing on the path weakens it.
	next := []models.Path{{ID: PathID([]string{"a", "b"}), NodeIDs: []string{"a", "b"}, Status: models.PathWeak, Confidence: 0.5}}

	out := ReconcilePaths(nil, prev, next, g)
	if out[0].Status != models.PathActive {
		t.Fatalf("active thread without counter-evidence must stay active, got %s", out[0].Status)
	}
}

func TestReconcileActiveDemotedByContradiction(t *testing.T) {
	g := models.Graph{
		Nodes: []models.Node{node("a", 0.8), node("b", 0.8)},
		Edges: []models.Edge{weakens("a", "b", 0.3, 0.5)},
	}
	prev := []models.Path{{ID: PathID([]string{"a", "b"}), NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.8}}
	next := []models.Path{{ID: PathID([]string{"a", "b"}), NodeIDs: []string{"a", "b"}, Status: models.PathWeak, Confidence: 0.4}}

	out := ReconcilePaths(nil, prev, next, g)
	if out[0].Status != models.PathWeak {
		t.Fatalf("counter-evidence on the path permits demotion, got %s", out[0].Status)
	}
}

func TestReconcileWeakCanRecoverToActive(t *testing.T) {
	prev := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathWeak, Confidence: 0.4}}
	next := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.8}}

	out := ReconcilePaths(nil, prev, next, models.Graph{})
	if out[0].Status != models.PathActive {
		t.Fatalf("weak thread must recover on re-strengthening, got %s", out[0].Status)
	}
}

func TestReconcileDeadStaysDead(t *testing.T) {
	prev := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathDead, Confidence: 0.7}}
	// Recomputed non-dead but no stronger than at time of death.
	next := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.7}}

	out := ReconcilePaths(nil, prev, next, models.Graph{})
	if out[0].Status != models.PathDead {
		t.Fatalf("dead thread must not revive without stronger evidence, got %s", out[0].Status)
	}
}

func TestReconcileDeadRevivedByStrongerEvidence(t *testing.T) {
	prev := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathDead, Confidence: 0.4}}
	next := []models.Path{{ID: "x", NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.8}}

	out := ReconcilePaths(nil, prev, next, models.Graph{})
	if out[0].Status != models.PathActive {
		t.Fatalf("new evidence outweighing the contradiction revives the thread, got %s", out[0].Status)
	}
}

func TestReconcileMatchesGrownThreadByPrefix(t *testing.T) {
	prev := []models.Path{{
		ID:         PathID([]string{"a", "b"}),
		NodeIDs:    []string{"a", "b"},
		Status:     models.PathDead,
		Confidence: 0.7,
	}}
	grown := []models.Path{{
		ID:         PathID([]string{"a", "b", "c"}),
		NodeIDs:    []string{"a", "b", "c"},
		Status:     models.PathActive,
		Confidence: 0.6,
	}}

	out := ReconcilePaths(nil, prev, grown, models.Graph{})
	if out[0].Status != models.PathDead {
		t.Fatalf("a grown thread inherits its prefix's lifecycle, got %s", out[0].Status)
	}
}

func TestReconcileUnrelatedThreadsUntouched(t *testing.T) {
	prev := []models.Path{{ID: "old", NodeIDs: []string{"x", "y"}, Status: models.PathDead, Confidence: 0.3}}
	next := []models.Path{{ID: "new", NodeIDs: []string{"a", "b"}, Status: models.PathActive, Confidence: 0.8}}

	out := ReconcilePaths(nil, prev, next, models.Graph{})
	if out[0].Status != models.PathActive {
		t.Fatalf("a brand-new thread starts from its computed status, got %s", out[0].Status)
	}
}

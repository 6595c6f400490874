package models

import "testing"

func TestPercentClamps(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-0.5, 0},
		{0, 0},
		{0.4449, 44},
		{0.445, 45},
		{1, 100},
		{1.7, 100},
	}
	for _, tc := range tests {
		if got := Percent(tc.in); got != tc.want {
			t.Fatalf("Percent(%f): got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGraphValidate(t *testing.T) {
	valid := Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}},
		Edges: []Edge{{From: "a", To: "b", Relation: RelationSupports}},
		Paths: []Path{{ID: "p", NodeIDs: []string{"a", "b"}}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid graph rejected: %v", err)
	}

	dupe := Graph{Nodes: []Node{{ID: "a"}, {ID: "a"}}}
	if err := dupe.Validate(); err == nil {
		t.Fatalf("duplicate node ids must be rejected")
	}

	dangling := Graph{
		Nodes: []Node{{ID: "a"}},
		Edges: []Edge{{From: "a", To: "ghost"}},
	}
	if err := dangling.Validate(); err == nil {
		t.Fatalf("dangling edge endpoint must be rejected")
	}

	badPath := Graph{
		Nodes: []Node{{ID: "a"}},
		Paths: []Path{{ID: "p", NodeIDs: []string{"ghost"}}},
	}
	if err := badPath.Validate(); err == nil {
		t.Fatalf("path over unknown node must be rejected")
	}
}

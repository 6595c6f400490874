package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

type stubLabeler struct {
	label string
	err   error
}

func (s stubLabeler) Label(context.Context, models.Path, models.Graph) (string, error) {
	return s.label, s.err
}

func TestApplyLabelsOverridesFallback(t *testing.T) {
	engine := NewPathEngine(nil, DefaultPathConfig())
	paths := []models.Path{{ID: "p", NodeIDs: []string{"a"}, HypothesisLabel: "node a"}}

	engine.ApplyLabels(context.Background(), stubLabeler{label: "shell company funnel"}, paths, models.Graph{})
	if paths[0].HypothesisLabel != "shell company funnel" {
		t.Fatalf("labeler output must override the fallback, got %q", paths[0].HypothesisLabel)
	}
}

func TestApplyLabelsKeepsFallbackOnError(t *testing.T) {
	engine := NewPathEngine(nil, DefaultPathConfig())
	paths := []models.Path{{ID: "p", NodeIDs: []string{"a"}, HypothesisLabel: "node a"}}

	engine.ApplyLabels(context.Background(), stubLabeler{err: errors.New("model offline")}, paths, models.Graph{})
	if paths[0].HypothesisLabel != "node a" {
		t.Fatalf("failures must keep the deterministic fallback, got %q", paths[0].HypothesisLabel)
	}
}

func TestApplyLabelsNilLabeler(t *testing.T) {
	engine := NewPathEngine(nil, DefaultPathConfig())
	paths := []models.Path{{ID: "p", NodeIDs: []string{"a"}, HypothesisLabel: "node a"}}

	engine.ApplyLabels(context.Background(), nil, paths, models.Graph{})
	if paths[0].HypothesisLabel != "node a" {
		t.Fatalf("nil labeler is a no-op")
	}
}

package models

// PathStatus is a hypothesis thread's lifecycle classification. Transitions
// are monotonic: active -> weak -> dead, with weak -> active allowed when new
// supporting evidence lands, and dead revived only by evidence that outweighs
// the contradiction that killed the path.
type PathStatus string

const (
	PathActive PathStatus = "active"
	PathWeak   PathStatus = "weak"
	PathDead   PathStatus = "dead"
)

// Path is one maximal hypothesis thread through the graph. The node sequence
// is append-only: once created it never changes, only status and confidence
// are recomputed as evidence accumulates.
type Path struct {
	ID              string     `json:"id"`
	NodeIDs         []string   `json:"node_ids"`
	Status          PathStatus `json:"status"`
	Confidence      float64    `json:"confidence"`
	HypothesisLabel string     `json:"hypothesis_label,omitempty"`
}

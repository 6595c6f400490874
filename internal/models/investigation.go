package models

import "time"

// Investigation is the per-case metadata the briefing derivation reads. The
// evidence graph itself lives alongside it in the store.
type Investigation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Hypothesis string    `json:"hypothesis"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecurringActor is a node label that keeps showing up as a turning point
// across investigations, surfaced by the pattern miner.
type RecurringActor struct {
	Label          string    `json:"label"`
	Investigations []string  `json:"investigations"`
	Occurrences    int       `json:"occurrences"`
	AvgConfidence  int       `json:"avg_confidence"`
	LastSeen       time.Time `json:"last_seen"`
}

package models

import "time"

// Polarity describes how a piece of evidence bears on the working hypothesis.
type Polarity string

const (
	PolaritySupports Polarity = "supports"
	PolarityWeakens  Polarity = "weakens"
	PolarityNeutral  Polarity = "neutral"
)

// CredibilityTier is the coarse source-quality grade assigned by collection.
type CredibilityTier string

const (
	TierA CredibilityTier = "A"
	TierB CredibilityTier = "B"
	TierC CredibilityTier = "C"
	TierD CredibilityTier = "D"
)

// Evidence is the common view the graph builder takes of a Signal or Claim.
// Date reports false when the record carries no observation date; ordering
// then falls back to IngestedAt.
type Evidence interface {
	EvidenceID() string
	Date() (time.Time, bool)
	IngestedAt() time.Time
	EvidencePolarity() Polarity
	// BaseConfidence returns the record's own confidence in [0,1].
	BaseConfidence() float64
	EvidenceLabel() string
	EvidenceURL() string
	EvidenceType() NodeType
}

// Signal is a raw, immutable evidentiary observation.
type Signal struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	URL        string          `json:"url,omitempty"`
	ObservedAt *time.Time      `json:"observed_at,omitempty"`
	Tier       CredibilityTier `json:"tier"`
	Impact     Polarity        `json:"impact"`
	Facts      []string        `json:"facts,omitempty"`
	Kind       NodeType        `json:"kind,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// tierConfidence maps credibility tiers onto node confidence. Unknown tiers
// fall back to 0.5.
var tierConfidence = map[CredibilityTier]float64{
	TierA: 0.90,
	TierB: 0.70,
	TierC: 0.50,
	TierD: 0.30,
}

// Confidence returns the node confidence a tier maps to.
func (t CredibilityTier) Confidence() float64 {
	if c, ok := tierConfidence[t]; ok {
		return c
	}
	return 0.5
}

func (s Signal) EvidenceID() string { return s.ID }

func (s Signal) Date() (time.Time, bool) {
	if s.ObservedAt == nil || s.ObservedAt.IsZero() {
		return time.Time{}, false
	}
	return *s.ObservedAt, true
}

func (s Signal) IngestedAt() time.Time { return s.CreatedAt }

func (s Signal) EvidencePolarity() Polarity {
	if s.Impact == "" {
		return PolarityNeutral
	}
	return s.Impact
}

func (s Signal) BaseConfidence() float64 {
	return s.Tier.Confidence()
}

func (s Signal) EvidenceLabel() string {
	if len(s.Facts) > 0 && s.Facts[0] != "" {
		return s.Facts[0]
	}
	return s.Source
}

func (s Signal) EvidenceURL() string { return s.URL }

func (s Signal) EvidenceType() NodeType {
	if s.Kind == "" {
		return NodeEvent
	}
	return s.Kind
}

// Claim is the canonical subject/action/object extraction of a signal. It is
// interchangeable with Signal as graph input.
type Claim struct {
	ID         string     `json:"id"`
	Subject    string     `json:"subject"`
	Action     string     `json:"action"`
	Object     string     `json:"object"`
	Polarity   Polarity   `json:"polarity"`
	Confidence float64    `json:"confidence"`
	SignalID   string     `json:"signal_id,omitempty"`
	URL        string     `json:"url,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	Kind       NodeType   `json:"kind,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (c Claim) EvidenceID() string { return c.ID }

func (c Claim) Date() (time.Time, bool) {
	if c.ObservedAt == nil || c.ObservedAt.IsZero() {
		return time.Time{}, false
	}
	return *c.ObservedAt, true
}

func (c Claim) IngestedAt() time.Time { return c.CreatedAt }

func (c Claim) EvidencePolarity() Polarity {
	if c.Polarity == "" {
		return PolarityNeutral
	}
	return c.Polarity
}

func (c Claim) BaseConfidence() float64 {
	if c.Confidence < 0 {
		return 0
	}
	if c.Confidence > 1 {
		return 1
	}
	return c.Confidence
}

func (c Claim) EvidenceLabel() string {
	label := c.Subject
	if c.Action != "" {
		label += " " + c.Action
	}
	if c.Object != "" {
		label += " " + c.Object
	}
	return label
}

func (c Claim) EvidenceURL() string { return c.URL }

func (c Claim) EvidenceType() NodeType {
	if c.Kind == "" {
		return NodeFact
	}
	return c.Kind
}

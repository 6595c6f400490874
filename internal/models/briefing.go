package models

import (
	"fmt"
	"strings"
	"time"
)

// BriefingDisclaimer is appended verbatim to every briefing. The payload
// carries no generated narrative beyond structured fields so that it stays
// auditable rather than persuasive.
const BriefingDisclaimer = "This briefing ranks competing hypotheses from available evidence. " +
	"It does not establish facts; verify against the cited sources before acting."

// PrimaryPath is the briefing's view of the leading hypothesis thread.
type PrimaryPath struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Status     PathStatus `json:"status"`
	Confidence int        `json:"confidence"`
	KeyNodes   []KeyNode  `json:"key_nodes"`
}

// KeyNode is a sampled evidence node shown inside the primary path. Like every
// other briefing field its confidence is an integer percentage, not the raw
// graph float.
type KeyNode struct {
	NodeID     string     `json:"node_id"`
	Label      string     `json:"label"`
	Date       *time.Time `json:"date,omitempty"`
	Confidence int        `json:"confidence"`
}

// TurningPoint is a node where hypotheses branch, merge, or overlap.
type TurningPoint struct {
	NodeID     string     `json:"node_id"`
	Label      string     `json:"label"`
	Date       *time.Time `json:"date,omitempty"`
	Confidence int        `json:"confidence"`
	PathCount  int        `json:"path_count"`
}

// AlternativePath summarises a non-primary thread, including dead ones, so a
// reader can audit discarded hypotheses.
type AlternativePath struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Status     PathStatus `json:"status"`
	Confidence int        `json:"confidence"`
}

// Uncertainty collects what the evidence does not settle.
type Uncertainty struct {
	LowConfidenceNodes []string `json:"low_confidence_nodes"`
	HasContradictions  bool     `json:"has_contradictions"`
}

// Briefing is a derived, read-only projection of the graph. It holds no
// identity of its own and is recomputed on demand.
type Briefing struct {
	InvestigationID  string            `json:"investigation_id"`
	Summary          string            `json:"summary"`
	PrimaryPath      *PrimaryPath      `json:"primary_path"`
	TurningPoints    []TurningPoint    `json:"turning_points"`
	AlternativePaths []AlternativePath `json:"alternative_paths"`
	Uncertainty      Uncertainty       `json:"uncertainty"`
	Disclaimer       string            `json:"disclaimer"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// Text flattens the briefing section by section for plain-text export.
func (b Briefing) Text() string {
	var sb strings.Builder

	sb.WriteString("INVESTIGATION BRIEFING\n")
	if b.Summary != "" {
		sb.WriteString(b.Summary + "\n")
	}
	sb.WriteString("\nPrimary hypothesis:\n")
	if b.PrimaryPath == nil {
		sb.WriteString("  none - no hypothesis threads yet\n")
	} else {
		fmt.Fprintf(&sb, "  %s [%s, %d%%]\n", b.PrimaryPath.Label, b.PrimaryPath.Status, b.PrimaryPath.Confidence)
		for _, n := range b.PrimaryPath.KeyNodes {
			fmt.Fprintf(&sb, "    - %s (%d%%)\n", n.Label, n.Confidence)
		}
	}

	sb.WriteString("\nTurning points:\n")
	if len(b.TurningPoints) == 0 {
		sb.WriteString("  none\n")
	}
	for _, tp := range b.TurningPoints {
		fmt.Fprintf(&sb, "  - %s (%d%%, %d threads)\n", tp.Label, tp.Confidence, tp.PathCount)
	}

	sb.WriteString("\nAlternative hypotheses:\n")
	if len(b.AlternativePaths) == 0 {
		sb.WriteString("  none\n")
	}
	for _, alt := range b.AlternativePaths {
		fmt.Fprintf(&sb, "  - %s [%s, %d%%]\n", alt.Label, alt.Status, alt.Confidence)
	}

	sb.WriteString("\nUncertainty:\n")
	if len(b.Uncertainty.LowConfidenceNodes) == 0 {
		sb.WriteString("  no low-confidence nodes\n")
	} else {
		fmt.Fprintf(&sb, "  low-confidence nodes: %s\n", strings.Join(b.Uncertainty.LowConfidenceNodes, ", "))
	}
	if b.Uncertainty.HasContradictions {
		sb.WriteString("  contradictory evidence present\n")
	}

	sb.WriteString("\n" + b.Disclaimer + "\n")
	return sb.String()
}

package api

import (
	"time"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

// Wire DTOs. Internal confidences live in [0,1]; every confidence that leaves
// the API is converted to an integer percentage here, in one place. Edge
// strength is not a confidence and stays a [0,1] float on the wire.

type nodeResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Label      string     `json:"label"`
	Date       *time.Time `json:"date,omitempty"`
	Confidence int        `json:"confidence"`
	SourceURLs []string   `json:"source_urls,omitempty"`
}

type edgeResponse struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Relation   string  `json:"relation"`
	Strength   float64 `json:"strength"`
	Confidence int     `json:"confidence"`
}

type pathResponse struct {
	ID         string   `json:"id"`
	NodeIDs    []string `json:"node_ids"`
	Status     string   `json:"status"`
	Confidence int      `json:"confidence"`
	Label      string   `json:"label,omitempty"`
}

type graphResponse struct {
	Nodes []nodeResponse `json:"nodes"`
	Edges []edgeResponse `json:"edges"`
	Paths []pathResponse `json:"paths"`
}

func toGraphResponse(g models.Graph) graphResponse {
	out := graphResponse{
		Nodes: make([]nodeResponse, 0, len(g.Nodes)),
		Edges: make([]edgeResponse, 0, len(g.Edges)),
		Paths: make([]pathResponse, 0, len(g.Paths)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, nodeResponse{
			ID:         n.ID,
			Type:       string(n.Type),
			Label:      n.Label,
			Date:       n.Date,
			Confidence: models.Percent(n.Confidence),
			SourceURLs: n.SourceURLs,
		})
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, edgeResponse{
			From:       e.From,
			To:         e.To,
			Relation:   string(e.Relation),
			Strength:   e.Strength,
			Confidence: models.Percent(e.Confidence),
		})
	}
	for _, p := range g.Paths {
		out.Paths = append(out.Paths, pathResponse{
			ID:         p.ID,
			NodeIDs:    p.NodeIDs,
			Status:     string(p.Status),
			Confidence: models.Percent(p.Confidence),
			Label:      p.HypothesisLabel,
		})
	}
	return out
}

// Package labeler provides the optional LLM-backed hypothesis labeler. The
// path engine works without it; labels fall back to the first node's label.
package labeler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

const labelPrompt = "You name investigation hypotheses. Given the ordered chain of facts below, " +
	"reply with a single short noun phrase (at most eight words) naming the hypothesis the chain suggests. " +
	"Reply with the phrase only.\n\n%s"

// OllamaLabeler generates hypothesis labels with a local Ollama model.
type OllamaLabeler struct {
	client *api.Client
	model  string
}

// NewOllamaLabeler constructs a labeler against the given Ollama host.
func NewOllamaLabeler(host, model string) (*OllamaLabeler, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &OllamaLabeler{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// Label names the hypothesis a path represents. The caller bounds latency
// through ctx; any error leaves the deterministic fallback in place.
func (l *OllamaLabeler) Label(ctx context.Context, path models.Path, g models.Graph) (string, error) {
	var chain strings.Builder
	for i, id := range path.NodeIDs {
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&chain, "%d. %s\n", i+1, node.Label)
	}

	stream := false
	req := &api.ChatRequest{
		Model: l.model,
		Messages: []api.Message{
			{Role: "user", Content: fmt.Sprintf(labelPrompt, chain.String())},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.0},
	}

	var label string
	err := l.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		label += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	label = strings.TrimSpace(strings.Trim(strings.TrimSpace(label), `"`))
	if label == "" {
		return "", fmt.Errorf("empty label from model")
	}
	return label, nil
}

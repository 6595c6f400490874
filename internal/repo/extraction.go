// Package repo holds clients for the external collaborators the engine
// talks to: the claim-extraction pipeline that turns raw documents into
// structured signals.
package repo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/inquestlabs/inquest-engine/internal/cache"
	"github.com/inquestlabs/inquest-engine/internal/models"
	"github.com/inquestlabs/inquest-engine/internal/utils"
)

// ExtractionClient wraps the external extraction service. That service owns
// all natural-language processing; this engine only consumes its structured
// output.
type ExtractionClient struct {
	baseURL     string
	signalsPath string
	httpClient  *http.Client
	cache       cache.Provider
	cacheTTL    time.Duration
}

// NewExtractionClient constructs a client targeting the configured
// extraction service. cacheProvider may be nil.
func NewExtractionClient(baseURL, signalsPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *ExtractionClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExtractionClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		signalsPath: signalsPath,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		cacheTTL:    cacheTTL,
	}
}

// ExtractSignals submits raw document text and returns the structured
// signals the extraction service produced. Responses are cached by content
// hash so re-submitting the same document is cheap.
func (c *ExtractionClient) ExtractSignals(ctx context.Context, investigationID, document string) ([]models.Signal, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("extraction service not configured")
	}

	cacheKey := extractionCacheKey(investigationID, document)
	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var signals []models.Signal
		if err := json.Unmarshal(cached, &signals); err == nil {
			return signals, nil
		}
	}

	payload := map[string]any{
		"investigation_id": investigationID,
		"document":         document,
	}

	var response struct {
		Signals []models.Signal `json:"signals"`
	}
	if err := c.postJSON(ctx, c.signalsURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	valid := make([]models.Signal, 0, len(response.Signals))
	for _, sig := range response.Signals {
		if sig.ID == "" {
			// Record-level problem: skip it, keep the batch.
			continue
		}
		if sig.CreatedAt.IsZero() {
			sig.CreatedAt = time.Now().UTC()
		}
		valid = append(valid, sig)
	}

	if body, err := json.Marshal(valid); err == nil {
		_ = c.cache.Set(ctx, cacheKey, body, c.cacheTTL)
	}
	return valid, nil
}

func (c *ExtractionClient) signalsURL() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + c.signalsPath
	}
	u.Path = path.Join(u.Path, c.signalsPath)
	return u.String()
}

func (c *ExtractionClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return utils.NewAppError("repo.postJSON",
			fmt.Sprintf("extraction service returned %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractionCacheKey(investigationID, document string) string {
	sum := sha256.Sum256([]byte(document))
	return "extract:" + investigationID + ":" + hex.EncodeToString(sum[:8])
}

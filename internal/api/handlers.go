package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inquestlabs/inquest-engine/internal/models"
	"github.com/inquestlabs/inquest-engine/internal/patterns"
	"github.com/inquestlabs/inquest-engine/internal/repo"
	"github.com/inquestlabs/inquest-engine/internal/services"
	"github.com/inquestlabs/inquest-engine/internal/utils"
)

// Handler bundles the API's dependencies.
type Handler struct {
	logger    *slog.Logger
	service   *services.InvestigationService
	miner     *patterns.Miner
	extractor *repo.ExtractionClient
}

// NewHandler constructs the API handler set. extractor may be nil when no
// extraction service is configured; the documents endpoint then returns 503.
func NewHandler(logger *slog.Logger, service *services.InvestigationService, miner *patterns.Miner, extractor *repo.ExtractionClient) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, miner: miner, extractor: extractor}
}

type createInvestigationRequest struct {
	Title      string `json:"title"`
	Hypothesis string `json:"hypothesis"`
}

// CreateInvestigation opens a new investigation.
func (h *Handler) CreateInvestigation(c echo.Context) error {
	var req createInvestigationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	inv, err := h.service.Create(c.Request().Context(), req.Title, req.Hypothesis)
	if err != nil {
		h.logger.Error("create investigation failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create investigation")
	}
	return c.JSON(http.StatusCreated, inv)
}

// ListInvestigations returns all investigations.
func (h *Handler) ListInvestigations(c echo.Context) error {
	list, err := h.service.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list investigations failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list investigations")
	}
	if list == nil {
		list = []models.Investigation{}
	}
	return c.JSON(http.StatusOK, list)
}

// GetInvestigation returns one investigation's metadata.
func (h *Handler) GetInvestigation(c echo.Context) error {
	inv, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFoundOr(err, "investigation not found")
	}
	return c.JSON(http.StatusOK, inv)
}

// signalPayload is the wire form of a signal. The observation date arrives
// as an ISO-8601 string so a malformed date fails that record alone, not the
// whole batch.
type signalPayload struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	ObservedAt string   `json:"observed_at"`
	Tier       string   `json:"tier"`
	Impact     string   `json:"impact"`
	Facts      []string `json:"facts"`
	Kind       string   `json:"kind"`
}

type ingestRequest struct {
	Signals []signalPayload `json:"signals"`
}

type ingestResponse struct {
	Stored  int           `json:"stored"`
	Skipped []string      `json:"skipped"`
	Graph   graphResponse `json:"graph"`
}

// IngestSignals accepts a signal batch, triggers a full recompute, and
// returns the resulting graph.
func (h *Handler) IngestSignals(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	skipped := make([]string, 0)
	signals := make([]models.Signal, 0, len(req.Signals))
	now := time.Now().UTC()
	for _, p := range req.Signals {
		sig := models.Signal{
			ID:        p.ID,
			Source:    p.Source,
			URL:       p.URL,
			Tier:      models.CredibilityTier(p.Tier),
			Impact:    models.Polarity(p.Impact),
			Facts:     p.Facts,
			Kind:      models.NodeType(p.Kind),
			CreatedAt: now,
		}
		if p.ObservedAt != "" {
			t, err := utils.ParseEvidenceDate(p.ObservedAt)
			if err != nil {
				h.logger.Warn("skipping signal with malformed date",
					slog.String("signal", p.ID), slog.Any("error", err))
				skipped = append(skipped, p.ID)
				continue
			}
			sig.ObservedAt = &t
		}
		signals = append(signals, sig)
	}

	result, err := h.service.Ingest(c.Request().Context(), c.Param("id"), signals)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "investigation not found")
		}
		h.logger.Error("ingest failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingest failed")
	}

	return c.JSON(http.StatusOK, ingestResponse{
		Stored:  result.Stored,
		Skipped: append(skipped, result.Skipped...),
		Graph:   toGraphResponse(result.Graph),
	})
}

type ingestDocumentRequest struct {
	Document string `json:"document"`
}

// IngestDocument submits raw document text to the extraction service and
// ingests the signals it produces.
func (h *Handler) IngestDocument(c echo.Context) error {
	if h.extractor == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "extraction service not configured")
	}

	var req ingestDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Document == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document is required")
	}

	id := c.Param("id")
	signals, err := h.extractor.ExtractSignals(c.Request().Context(), id, req.Document)
	if err != nil {
		h.logger.Error("extraction failed", slog.String("investigation", id), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "extraction failed")
	}

	result, err := h.service.Ingest(c.Request().Context(), id, signals)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "investigation not found")
		}
		h.logger.Error("ingest failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingest failed")
	}

	return c.JSON(http.StatusOK, ingestResponse{
		Stored:  result.Stored,
		Skipped: result.Skipped,
		Graph:   toGraphResponse(result.Graph),
	})
}

// GetGraph returns the investigation's current graph.
func (h *Handler) GetGraph(c echo.Context) error {
	graph, err := h.service.Graph(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFoundOr(err, "investigation not found")
	}
	return c.JSON(http.StatusOK, toGraphResponse(graph))
}

// GetBriefing returns the derived briefing, as JSON or flattened text.
func (h *Handler) GetBriefing(c echo.Context) error {
	briefing, err := h.service.Briefing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return notFoundOr(err, "investigation not found")
	}
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, briefing.Text())
	}
	return c.JSON(http.StatusOK, briefing)
}

// GetPatterns mines recurring turning-point actors across investigations.
func (h *Handler) GetPatterns(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := h.service.List(ctx)
	if err != nil {
		h.logger.Error("list investigations failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to mine patterns")
	}

	cases := make([]patterns.Case, 0, len(list))
	for _, inv := range list {
		graph, err := h.graphFor(ctx, inv.ID)
		if err != nil {
			h.logger.Warn("skipping investigation in pattern mining",
				slog.String("investigation", inv.ID), slog.Any("error", err))
			continue
		}
		cases = append(cases, patterns.Case{
			InvestigationID: inv.ID,
			Graph:           graph,
			UpdatedAt:       inv.UpdatedAt,
		})
	}

	actors := h.miner.Mine(cases)
	if actors == nil {
		actors = []models.RecurringActor{}
	}
	return c.JSON(http.StatusOK, actors)
}

func (h *Handler) graphFor(ctx context.Context, id string) (models.Graph, error) {
	return h.service.Graph(ctx, id)
}

func notFoundOr(err error, msg string) error {
	if isNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

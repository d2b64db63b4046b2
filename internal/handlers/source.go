// Package handlers exposes source registration and lifecycle over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/newsloom/source-manager/internal/events"
	"github.com/newsloom/source-manager/internal/importer"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
	"github.com/newsloom/source-manager/internal/repository"
	"github.com/newsloom/source-manager/internal/synthesis"
)

const maxBatchSize = 500

// Synthesizer produces source configurations from raw identifiers.
type Synthesizer interface {
	Synthesize(ctx context.Context, identifier string) (*models.SourceConfig, error)
	SynthesizeBatch(ctx context.Context, identifiers []string, workers int) []synthesis.BatchResult
}

// SourceStore persists registered sources.
type SourceStore interface {
	Create(ctx context.Context, source *models.Source) error
	GetByID(ctx context.Context, id string) (*models.Source, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.Source, error)
	List(ctx context.Context) ([]models.Source, error)
	SoftDelete(ctx context.Context, id string) error
}

// EventPublisher emits lifecycle events. A nil *events.Publisher satisfies it
// as a no-op.
type EventPublisher interface {
	PublishAsync(event events.SourceEvent)
}

type SourceHandler struct {
	synth        Synthesizer
	store        SourceStore
	publisher    EventPublisher
	batchWorkers int
	logger       logger.Logger
}

func NewSourceHandler(
	synth Synthesizer,
	store SourceStore,
	publisher EventPublisher,
	batchWorkers int,
	log logger.Logger,
) *SourceHandler {
	return &SourceHandler{
		synth:        synth,
		store:        store,
		publisher:    publisher,
		batchWorkers: batchWorkers,
		logger:       log,
	}
}

type registerRequest struct {
	Identifier string `binding:"required" json:"identifier"`
	Name       string `json:"name"`
	Enabled    *bool  `json:"enabled"`
}

// Register synthesizes a config for the identifier and persists the source.
// Synthesis failures map to 422 with the failing stage; an identifier that is
// already registered maps to 409.
func (h *SourceHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body",
			logger.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()

	if existing, err := h.store.GetByIdentifier(ctx, req.Identifier); err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Source already registered",
			"source_id": existing.ID,
		})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to check existing source",
			logger.String("identifier", req.Identifier),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register source"})
		return
	}

	cfg, err := h.synth.Synthesize(ctx, req.Identifier)
	if err != nil {
		h.respondSynthesisFailure(c, req.Identifier, err)
		return
	}

	source, err := h.persist(ctx, req.Identifier, req.Name, req.Enabled, cfg)
	if err != nil {
		// A concurrent registration can slip past the lookup above; the
		// partial unique index turns it into a duplicate error here.
		if errors.Is(err, repository.ErrDuplicateIdentifier) {
			c.JSON(http.StatusConflict, gin.H{"error": "Source already registered"})
			return
		}
		h.logger.Error("Failed to create source",
			logger.String("identifier", req.Identifier),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register source"})
		return
	}

	h.logger.Info("Source registered",
		logger.String("source_id", source.ID),
		logger.String("identifier", source.Identifier),
		logger.String("platform", string(source.Platform)),
	)

	c.JSON(http.StatusCreated, source)
}

type batchRequest struct {
	Identifiers []string `binding:"required" json:"identifiers"`
}

// batchItem reports the outcome for one identifier in a batch.
type batchItem struct {
	Identifier string         `json:"identifier"`
	Status     string         `json:"status"`
	Source     *models.Source `json:"source,omitempty"`
	Stage      string         `json:"stage,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// RegisterBatch synthesizes configs for a list of identifiers concurrently.
// Per-identifier failures are reported in place; the batch itself always
// succeeds with a 200 once it parses.
func (h *SourceHandler) RegisterBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(req.Identifiers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one identifier is required"})
		return
	}
	if len(req.Identifiers) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch too large", "max": maxBatchSize})
		return
	}

	rows := make([]importer.SourceRow, len(req.Identifiers))
	for i, id := range req.Identifiers {
		rows[i] = importer.SourceRow{Identifier: id, Enabled: true}
	}

	items, created, failed := h.registerRows(c.Request.Context(), rows)

	c.JSON(http.StatusOK, gin.H{
		"results":   items,
		"succeeded": created,
		"failed":    failed,
	})
}

// Import accepts an xlsx upload and registers every valid row. Row-level
// validation errors and synthesis failures are reported per row.
func (h *SourceHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload", "details": err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open upload", "details": err.Error()})
		return
	}
	defer file.Close()

	rows, rowErrors, err := importer.ParseFile(file)
	if err != nil {
		h.logger.Debug("Failed to parse import workbook",
			logger.String("filename", fileHeader.Filename),
			logger.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse workbook", "details": err.Error()})
		return
	}
	if len(rows) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Import too large", "max": maxBatchSize})
		return
	}

	items, created, failed := h.registerRows(c.Request.Context(), rows)

	h.logger.Info("Import completed",
		logger.String("filename", fileHeader.Filename),
		logger.Int("created", created),
		logger.Int("failed", failed),
		logger.Int("invalid_rows", len(rowErrors)),
	)

	c.JSON(http.StatusOK, gin.H{
		"results":    items,
		"row_errors": rowErrors,
		"succeeded":  created,
		"failed":     failed + len(rowErrors),
	})
}

// registerRows synthesizes configs for the rows concurrently and persists the
// successes. Duplicate identifiers are reported, not overwritten.
func (h *SourceHandler) registerRows(ctx context.Context, rows []importer.SourceRow) (items []batchItem, created, failed int) {
	identifiers := make([]string, len(rows))
	for i, row := range rows {
		identifiers[i] = row.Identifier
	}

	results := h.synth.SynthesizeBatch(ctx, identifiers, h.batchWorkers)

	items = make([]batchItem, len(results))
	for i, result := range results {
		item := batchItem{Identifier: result.Identifier}

		switch {
		case result.Err != nil:
			item.Status = "failed"
			item.Error = result.Err.Error()
			var synthErr *synthesis.SynthesisError
			if errors.As(result.Err, &synthErr) {
				item.Stage = string(synthErr.Stage)
			}
			failed++

		default:
			if _, err := h.store.GetByIdentifier(ctx, result.Identifier); err == nil {
				item.Status = "duplicate"
				item.Error = "identifier already registered"
				failed++
				break
			} else if !errors.Is(err, repository.ErrNotFound) {
				item.Status = "failed"
				item.Error = "failed to check existing source"
				failed++
				break
			}

			source, err := h.persist(ctx, result.Identifier, rows[i].Name, &rows[i].Enabled, result.Config)
			if errors.Is(err, repository.ErrDuplicateIdentifier) {
				item.Status = "duplicate"
				item.Error = "identifier already registered"
				failed++
				break
			}
			if err != nil {
				h.logger.Error("Failed to create source",
					logger.String("identifier", result.Identifier),
					logger.Error(err),
				)
				item.Status = "failed"
				item.Error = "failed to persist source"
				failed++
				break
			}
			item.Status = "created"
			item.Source = source
			created++
		}

		items[i] = item
	}

	return items, created, failed
}

// persist stores the synthesized source and emits the synthesis event.
func (h *SourceHandler) persist(
	ctx context.Context,
	identifier, name string,
	enabled *bool,
	cfg *models.SourceConfig,
) (*models.Source, error) {
	source := &models.Source{
		Identifier: identifier,
		Name:       name,
		Platform:   cfg.Platform,
		Config:     *cfg,
		Enabled:    enabled == nil || *enabled,
	}

	if err := h.store.Create(ctx, source); err != nil {
		return nil, err
	}

	h.publisher.PublishAsync(events.SourceEvent{
		EventType:  events.EventConfigSynthesized,
		SourceID:   source.ID,
		Identifier: source.Identifier,
		Platform:   source.Platform,
	})

	return source, nil
}

func (h *SourceHandler) respondSynthesisFailure(c *gin.Context, identifier string, err error) {
	var synthErr *synthesis.SynthesisError
	if errors.As(err, &synthErr) {
		h.logger.Warn("Synthesis failed",
			logger.String("identifier", identifier),
			logger.String("stage", string(synthErr.Stage)),
			logger.Error(err),
		)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "Synthesis failed",
			"identifier": synthErr.Identifier,
			"stage":      string(synthErr.Stage),
			"details":    synthErr.Err.Error(),
		})
		return
	}

	h.logger.Error("Synthesis failed",
		logger.String("identifier", identifier),
		logger.Error(err),
	)
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":      "Synthesis failed",
		"identifier": identifier,
		"details":    err.Error(),
	})
}

func (h *SourceHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	source, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		h.logger.Error("Failed to get source",
			logger.String("source_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get source"})
		return
	}

	c.JSON(http.StatusOK, source)
}

func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list sources",
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"count":   len(sources),
	})
}

func (h *SourceHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	source, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		h.logger.Error("Failed to get source",
			logger.String("source_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}

	if err := h.store.SoftDelete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		h.logger.Error("Failed to delete source",
			logger.String("source_id", id),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete source"})
		return
	}

	h.publisher.PublishAsync(events.SourceEvent{
		EventType:  events.EventSourceDeleted,
		SourceID:   id,
		Identifier: source.Identifier,
		Platform:   source.Platform,
	})

	h.logger.Info("Source deleted",
		logger.String("source_id", id),
	)

	c.JSON(http.StatusNoContent, nil)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caselens/claimsift/internal/engine"
	"github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/redis"
	"github.com/caselens/claimsift/internal/infrastructure/messaging/kafka"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// AnalysisHandler serves synchronous analysis and stored-result lookups.
// Cache, repository and producer are each optional; a nil dependency simply
// disables the corresponding behavior.
type AnalysisHandler struct {
	engine   engine.Engine
	cache    redis.ResultCache
	repo     repositories.AnalysisRepository
	producer kafka.JobProducer
	logger   logging.Logger
}

// NewAnalysisHandler wires the handler.
func NewAnalysisHandler(eng engine.Engine, cache redis.ResultCache, repo repositories.AnalysisRepository, producer kafka.JobProducer, logger logging.Logger) *AnalysisHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AnalysisHandler{engine: eng, cache: cache, repo: repo, producer: producer, logger: logger}
}

// AnalyzeRequest is the synchronous analysis input.
type AnalyzeRequest struct {
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text" binding:"required"`
	Roster     []string `json:"roster,omitempty"`
}

// AnalyzeResponse carries the analysis outcome.
type AnalyzeResponse struct {
	ID         string                     `json:"id,omitempty"`
	DocumentID string                     `json:"document_id,omitempty"`
	Cached     bool                       `json:"cached"`
	Result     *damages.AggregationResult `json:"result"`
}

// Analyze handles POST /api/v1/analyze.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	if h.cache != nil {
		if cached, err := h.cache.Get(c.Request.Context(), req.Text); err == nil {
			c.JSON(http.StatusOK, AnalyzeResponse{
				DocumentID: req.DocumentID,
				Cached:     true,
				Result:     cached,
			})
			return
		}
	}

	result, err := h.engine.Analyze(c.Request.Context(), &damages.Document{
		ID:     req.DocumentID,
		Text:   req.Text,
		Roster: req.Roster,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := AnalyzeResponse{DocumentID: req.DocumentID, Result: result}

	if h.repo != nil {
		rec := &repositories.AnalysisRecord{
			DocumentID:   req.DocumentID,
			DocumentHash: redis.DocumentHash(req.Text),
			Format:       string(result.Structure.Format),
			Result:       *result,
		}
		if err := h.repo.Save(c.Request.Context(), rec); err != nil {
			// The analysis is still good; persistence is best-effort here.
			h.logger.Error("failed to persist analysis", logging.Err(err))
		} else {
			resp.ID = rec.ID.String()
		}
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), req.Text, result); err != nil {
			h.logger.Warn("failed to cache analysis", logging.Err(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/analyses/:id.
func (h *AnalysisHandler) Get(c *gin.Context) {
	if h.repo == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "analysis storage is not configured"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.New(errors.ErrCodeValidation, "invalid analysis id"))
		return
	}

	rec, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// List handles GET /api/v1/analyses.
func (h *AnalysisHandler) List(c *gin.Context) {
	if h.repo == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "analysis storage is not configured"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records, "count": len(records)})
}

// BatchRequest enqueues one document for asynchronous analysis.
type BatchRequest struct {
	DocumentID string   `json:"document_id" binding:"required"`
	Text       string   `json:"text,omitempty"`
	Bucket     string   `json:"bucket,omitempty"`
	ObjectKey  string   `json:"object_key,omitempty"`
	Roster     []string `json:"roster,omitempty"`
}

// EnqueueBatch handles POST /api/v1/batch.
func (h *AnalysisHandler) EnqueueBatch(c *gin.Context) {
	if h.producer == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "job queue is not configured"))
		return
	}
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	job := &kafka.AnalysisJob{
		DocumentID: req.DocumentID,
		Text:       req.Text,
		Bucket:     req.Bucket,
		ObjectKey:  req.ObjectKey,
		Roster:     req.Roster,
	}
	if err := h.producer.Enqueue(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID, "document_id": job.DocumentID})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caselens/claimsift/internal/generation"
	graphrepo "github.com/caselens/claimsift/internal/infrastructure/database/neo4j/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/database/postgres/repositories"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/internal/infrastructure/search/opensearch"
	"github.com/caselens/claimsift/pkg/errors"
	"github.com/caselens/claimsift/pkg/types/damages"
)

// DraftHandler turns a stored analysis into brief prose. Searcher and
// statute repository are optional enrichments; the drafter is required.
type DraftHandler struct {
	repo     repositories.AnalysisRepository
	searcher opensearch.Searcher
	statutes graphrepo.StatuteRepository
	drafter  generation.Drafter
	logger   logging.Logger
}

// NewDraftHandler wires the handler.
func NewDraftHandler(repo repositories.AnalysisRepository, searcher opensearch.Searcher, statutes graphrepo.StatuteRepository, drafter generation.Drafter, logger logging.Logger) *DraftHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DraftHandler{repo: repo, searcher: searcher, statutes: statutes, drafter: drafter, logger: logger}
}

// Draft handles POST /api/v1/analyses/:id/draft.
func (h *DraftHandler) Draft(c *gin.Context) {
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

	req := &generation.DraftRequest{
		DocumentID: rec.DocumentID,
		Result:     &rec.Result,
	}

	if h.searcher != nil {
		hits, err := h.searcher.FindSimilar(c.Request.Context(), &rec.Result)
		if err != nil {
			// Drafting without precedents is degraded, not broken.
			h.logger.Warn("precedent retrieval failed", logging.Err(err))
		} else {
			req.Precedents = hits
		}
	}

	if h.statutes != nil {
		req.Statutes = h.lookupStatutes(c, &rec.Result)
	}

	draft, err := h.drafter.Draft(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *DraftHandler) lookupStatutes(c *gin.Context, result *damages.AggregationResult) map[damages.Category][]graphrepo.Statute {
	statutes := make(map[damages.Category][]graphrepo.Statute)
	for _, claimant := range result.Claimants {
		for _, item := range claimant.Items {
			if _, done := statutes[item.Category]; done {
				continue
			}
			found, err := h.statutes.StatutesFor(c.Request.Context(), item.Category)
			if err != nil {
				h.logger.Warn("statute lookup failed",
					logging.String("category", string(item.Category)), logging.Err(err))
				continue
			}
			statutes[item.Category] = found
		}
	}
	return statutes
}

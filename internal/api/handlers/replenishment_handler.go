package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/andresuchdata/autopo-replenish/internal/rules"
	"github.com/andresuchdata/autopo-replenish/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
	sources *service.Sources
}

func NewReplenishmentHandler(svc *service.ReplenishmentService, sources *service.Sources) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: svc, sources: sources}
}

type runRequest struct {
	Profile string `json:"profile"`
	service.SourceRequest
}

// CreateRun computes a run synchronously and returns its summary.
func (h *ReplenishmentHandler) CreateRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run request"})
			return
		}
	}
	if profile := strings.TrimSpace(c.Query("profile")); profile != "" {
		req.Profile = profile
	}

	loader, kind, err := h.sources.Loader(req.SourceRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.service.Run(c.Request.Context(), service.RunOptions{
		Profile: req.Profile,
		Source:  kind,
		Loader:  loader,
	})
	if err != nil {
		status := runErrorStatus(err)
		log.Error().Err(err).Int("status", status).Msg("Replenishment run request failed")
		body := gin.H{"error": err.Error()}
		if run != nil {
			body["run"] = run
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, run)
}

func (h *ReplenishmentHandler) GetLatestRun(c *gin.Context) {
	run, err := h.service.LastRun(c.Request.Context())
	if errors.Is(err, service.ErrNoRuns) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch latest run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReplenishmentHandler) GetRules(c *gin.Context) {
	info, err := h.service.Rules(strings.TrimSpace(c.Query("profile")))
	if err != nil {
		c.JSON(runErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, rules.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, replenishment.ErrInvalidRules),
		errors.Is(err, replenishment.ErrEmptySnapshot),
		errors.Is(err, replenishment.ErrMissingCatalog),
		errors.Is(err, replenishment.ErrMissingReferenceTime):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"anpr-client/internal/service"
)

const maxIngestBytes = 64 << 20

type Handler struct {
	detectionService *service.DetectionService
	log              zerolog.Logger
}

func NewHandler(
	detectionService *service.DetectionService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		detectionService: detectionService,
		log:              log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)

	api := r.Group("/api/v1")
	{
		api.POST("/detections", h.createDetection)
		api.POST("/detections/ingest", h.ingestDetection)
		api.GET("/history", h.listHistory)
		api.GET("/history/summary", h.getSummary)
		api.GET("/history/:id", h.getHistoryEntry)
		api.DELETE("/history", h.clearHistory)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"degraded": h.detectionService.Degraded(),
	})
}

func (h *Handler) createDetection(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("file is required"))
		return
	}

	f, err := file.Open()
	if err != nil {
		h.log.Error().Err(err).Str("file", file.Filename).Msg("failed to open uploaded file")
		c.JSON(http.StatusBadRequest, errorResponse("cannot read uploaded file"))
		return
	}
	defer f.Close()

	outcome, err := h.detectionService.Analyze(c.Request.Context(), file.Filename, f)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(outcome))
}

func (h *Handler) ingestDetection(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("cannot read request body"))
		return
	}

	outcome, err := h.detectionService.Ingest(c.Request.Context(), raw)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(outcome))
}

func (h *Handler) listHistory(c *gin.Context) {
	view, err := h.detectionService.History(strings.TrimSpace(c.Query("plate")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if c.Query("order") == "newest" {
		view.Entries = view.Entries.NewestFirst()
	}

	c.JSON(http.StatusOK, successResponse(view))
}

func (h *Handler) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.detectionService.Summary()))
}

func (h *Handler) getHistoryEntry(c *gin.Context) {
	entry, err := h.detectionService.Entry(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(entry))
}

func (h *Handler) clearHistory(c *gin.Context) {
	// memory is cleared even when storage could not be; the browser only
	// needs to know about the warning
	if err := h.detectionService.Clear(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Msg("history cleared in memory only")
		c.Header("Warning", `199 - "history storage not cleared"`)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrMalformedResponse), errors.Is(err, service.ErrDetectionFailed):
		c.JSON(http.StatusBadGateway, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

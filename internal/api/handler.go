package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/query"
	"github.com/mr1hm/pulsemap/internal/repository"
)

// Handler serves the public read API.
type Handler struct {
	query *query.Service
}

func NewHandler(q *query.Service) *Handler {
	return &Handler{query: q}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/events", h.listEvents)
	api.GET("/events/recent", h.recentEvents)
	api.GET("/events/geojson", h.geoJSON)
	api.GET("/events/:id", h.getEvent)
	api.GET("/stats", h.stats)
}

// parseOptions reads ?type= and ?limit=. An unparsable or non-positive limit
// is ignored; an unknown type is an error.
func parseOptions(c *gin.Context) (query.Options, bool) {
	var opts query.Options

	if t := c.Query("type"); t != "" {
		et, ok := models.ParseEventType(t)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event type"})
			return opts, false
		}
		opts.Type = &et
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 {
			opts.Limit = lim
		}
	}
	return opts, true
}

func (h *Handler) listEvents(c *gin.Context) {
	opts, ok := parseOptions(c)
	if !ok {
		return
	}

	events, err := h.query.List(c.Request.Context(), opts)
	if err != nil {
		serverError(c, "failed to fetch events", err)
		return
	}
	c.JSON(http.StatusOK, toEventResponses(events))
}

func (h *Handler) recentEvents(c *gin.Context) {
	events, err := h.query.Recent(c.Request.Context())
	if err != nil {
		serverError(c, "failed to fetch recent events", err)
		return
	}
	c.JSON(http.StatusOK, toEventResponses(events))
}

func (h *Handler) geoJSON(c *gin.Context) {
	opts, ok := parseOptions(c)
	if !ok {
		return
	}

	events, err := h.query.List(c.Request.Context(), opts)
	if err != nil {
		serverError(c, "failed to fetch events", err)
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(events))
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	event, err := h.query.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		serverError(c, "failed to fetch event", err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.query.Stats(c.Request.Context())
	if err != nil {
		serverError(c, "failed to fetch stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID answers 404 for ids that cannot name a row.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return 0, false
	}
	return id, true
}

// serverError logs the cause and answers with a generic message.
func serverError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	slog.Error(msg, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

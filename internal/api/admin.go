package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr1hm/pulsemap/internal/auth"
	"github.com/mr1hm/pulsemap/internal/ingestion"
	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/repository"
	"github.com/mr1hm/pulsemap/internal/retention"
)

const (
	SessionCookie = "pulsemap_session"
	sessionKey    = "session"
)

type Refresher interface {
	RefreshAll(ctx context.Context) (*ingestion.Report, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (retention.Result, error)
	SweepAll(ctx context.Context, age time.Duration) (int64, error)
}

// AdminHandler serves the session-protected /admin routes.
type AdminHandler struct {
	store      repository.EventRepository
	auth       *auth.Service
	refresher  Refresher
	sweeper    Sweeper
	cleanupAge time.Duration
}

func NewAdminHandler(store repository.EventRepository, authSvc *auth.Service, refresher Refresher, sweeper Sweeper, cleanupAge time.Duration) *AdminHandler {
	if cleanupAge <= 0 {
		cleanupAge = 24 * time.Hour
	}
	return &AdminHandler{
		store:      store,
		auth:       authSvc,
		refresher:  refresher,
		sweeper:    sweeper,
		cleanupAge: cleanupAge,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.POST("/login", h.login)
	admin.POST("/logout", h.logout)

	protected := admin.Group("", RequireSession(h.auth))
	protected.GET("/user-info", h.userInfo)
	protected.GET("/events", h.listEvents)
	protected.POST("/events", h.createEvent)
	protected.PUT("/events/:id", h.updateEvent)
	protected.DELETE("/events/:id", h.deleteEvent)
	protected.POST("/refresh", h.refresh)
	protected.POST("/cleanup", h.cleanup)
	protected.POST("/retention", h.retention)
	protected.POST("/change-username", h.changeUsername)
	protected.POST("/change-password", h.changePassword)
}

// RequireSession rejects requests without a live session cookie.
func RequireSession(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err == nil {
			if sess, ok := svc.Session(token); ok {
				c.Set(sessionKey, sess)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
}

func currentSession(c *gin.Context) auth.Session {
	sess, _ := c.MustGet(sessionKey).(auth.Session)
	return sess
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("admin login failed", "username", req.Username, "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		serverError(c, "Login failed", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sess.Token, int(h.auth.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful"})
}

func (h *AdminHandler) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil {
		h.auth.Logout(token)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

func (h *AdminHandler) userInfo(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{"id": sess.UserID, "username": sess.Username})
}

func (h *AdminHandler) listEvents(c *gin.Context) {
	events, err := h.store.List(c.Request.Context(), repository.Filter{})
	if err != nil {
		serverError(c, "Failed to fetch events", err)
		return
	}
	c.JSON(http.StatusOK, toEventResponses(events))
}

type createEventRequest struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Magnitude   *float64 `json:"magnitude"`
	Depth       *float64 `json:"depth"`
	URL         string   `json:"url"`
	// Timestamp is epoch milliseconds; now when omitted.
	Timestamp *int64 `json:"timestamp"`
}

func (r createEventRequest) toEvent(now time.Time) (*models.Event, error) {
	t, ok := models.ParseEventType(r.Type)
	if !ok {
		return nil, &models.ValidationError{Field: "type", Message: fmt.Sprintf("unknown event type %q", r.Type)}
	}
	if r.Latitude == nil || r.Longitude == nil {
		return nil, &models.ValidationError{Field: "latitude", Message: "latitude and longitude are required"}
	}

	e := &models.Event{
		ExternalID:  "admin_" + uuid.NewString(),
		Type:        t,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Depth:       r.Depth,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		Time:        now,
		URL:         r.URL,
	}
	if r.Magnitude != nil {
		e.Severity = models.Severity{Kind: t.SeverityKind(), Value: *r.Magnitude}
	}
	if r.Timestamp != nil {
		e.Time = time.UnixMilli(*r.Timestamp).UTC()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (h *AdminHandler) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	event, err := req.toEvent(time.Now().UTC())
	if err != nil {
		validationOr500(c, "Failed to create event", err)
		return
	}
	if err := h.store.Upsert(c.Request.Context(), event); err != nil {
		serverError(c, "Failed to create event", err)
		return
	}

	slog.Info("admin created event", "id", event.ID, "type", event.Type, "admin", currentSession(c).Username)
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Event created successfully", "id": event.ID})
}

type updateEventRequest struct {
	Title     *string  `json:"title"`
	Magnitude *float64 `json:"magnitude"`
	Depth     *float64 `json:"depth"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Location  *string  `json:"location"`
}

func (h *AdminHandler) updateEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	patch := models.EventPatch{
		Title:     req.Title,
		Magnitude: req.Magnitude,
		Depth:     req.Depth,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Location:  req.Location,
	}

	event, err := h.store.Update(c.Request.Context(), id, patch)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		validationOr500(c, "Failed to update event", err)
		return
	}

	slog.Info("admin updated event", "id", id, "admin", currentSession(c).Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event updated successfully", "event": toEventResponse(event)})
}

func (h *AdminHandler) deleteEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.store.DeleteByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if err != nil {
		serverError(c, "Failed to delete event", err)
		return
	}

	slog.Info("admin deleted event", "id", id, "admin", currentSession(c).Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event deleted successfully"})
}

func (h *AdminHandler) refresh(c *gin.Context) {
	report, err := h.refresher.RefreshAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		slog.Error("admin refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh data", "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Data refreshed successfully", "report": report})
}

type cleanupRequest struct {
	MaxAgeHours *float64 `json:"maxAgeHours"`
}

func (h *AdminHandler) cleanup(c *gin.Context) {
	age := h.cleanupAge
	if c.Request.ContentLength > 0 {
		var req cleanupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.MaxAgeHours != nil {
			if *req.MaxAgeHours <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "maxAgeHours must be positive"})
				return
			}
			if *req.MaxAgeHours > math.MaxInt64/float64(time.Hour) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "maxAgeHours is too large"})
				return
			}
			age = time.Duration(*req.MaxAgeHours * float64(time.Hour))
		}
	}

	n, err := h.sweeper.SweepAll(c.Request.Context(), age)
	if err != nil {
		serverError(c, "Failed to clean up events", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Cleaned up %d events older than %g hours", n, age.Hours()),
		"deletedCount": n,
	})
}

func (h *AdminHandler) retention(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		serverError(c, "Failed to apply retention policy", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": result, "deletedCount": result.Total()})
}

type changeUsernameRequest struct {
	NewUsername     string `json:"newUsername"`
	CurrentPassword string `json:"currentPassword"`
}

func (h *AdminHandler) changeUsername(c *gin.Context) {
	var req changeUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, _ := c.Cookie(SessionCookie)
	err := h.auth.ChangeUsername(c.Request.Context(), token, req.NewUsername, req.CurrentPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Username updated successfully", "username": req.NewUsername})
	case errors.Is(err, auth.ErrInvalidUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be between 2 and 20 characters"})
	case errors.Is(err, auth.ErrPasswordRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required"})
	case errors.Is(err, auth.ErrSameUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": "New username must be different from current username"})
	case errors.Is(err, repository.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
	default:
		authError(c, "Failed to change username", err)
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AdminHandler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, _ := c.Cookie(SessionCookie)
	err := h.auth.ChangePassword(c.Request.Context(), token, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
	case errors.Is(err, auth.ErrPasswordRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current and new passwords are required"})
	case errors.Is(err, auth.ErrSamePassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be different from current password"})
	default:
		authError(c, "Failed to change password", err)
	}
}

// authError covers the failures shared by the credential-changing routes.
func authError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, auth.ErrIncorrectPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
	case errors.Is(err, auth.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	default:
		serverError(c, msg, err)
	}
}

// validationOr500 answers 400 with the message of a ValidationError and a
// generic 500 for anything else.
func validationOr500(c *gin.Context, msg string, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
		return
	}
	serverError(c, msg, err)
}

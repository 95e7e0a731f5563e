// Package handler exposes the orchestration core over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"projectpilot/internal/coordinator"
	"projectpilot/internal/domain"
	"projectpilot/internal/plan"
)

// Handler holds the HTTP endpoints.
type Handler struct {
	facade *coordinator.Facade
	log    zerolog.Logger
}

// NewHandler creates the handler.
func NewHandler(facade *coordinator.Facade, log zerolog.Logger) *Handler {
	return &Handler{facade: facade, log: log}
}

// RegisterRoutes wires the routes onto the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/v1/projects/:project_id/messages", h.PostMessage)
	e.GET("/v1/projects/:project_id/messages", h.GetMessages)
	e.GET("/v1/projects/:project_id/items", h.GetItems)
	e.GET("/v1/projects/:project_id/activity", h.GetActivity)
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type postMessageRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// PostMessage runs one conversational turn. The reply is synchronous; the
// analysis steps and reconciliation continue in the background, so updates
// in the response are always empty.
// POST /v1/projects/:project_id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	var body postMessageRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	req := domain.ChatRequest{
		ProjectID: c.Param("project_id"),
		UserID:    body.UserID,
		Message:   body.Message,
	}

	resp, _, err := h.facade.HandleMessage(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, plan.ErrUnknownIntent) {
			// Configuration error: surfaced, not hidden behind a retry.
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Str("project_id", req.ProjectID).Msg("message handling failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// GetMessages returns the recent conversation in chronological order.
// GET /v1/projects/:project_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	messages, err := h.facade.GetMessages(c.Request().Context(), c.Param("project_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

// GetItems returns the derived three-bucket project state.
// GET /v1/projects/:project_id/items
func (h *Handler) GetItems(c echo.Context) error {
	state, err := h.facade.GetItems(c.Request().Context(), c.Param("project_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, state)
}

// GetActivity returns recent activity log entries, newest first.
// GET /v1/projects/:project_id/activity
func (h *Handler) GetActivity(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	entries, err := h.facade.ListActivity(c.Request().Context(), c.Param("project_id"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"activity": entries})
}

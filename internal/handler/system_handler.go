package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/service"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/response"
)

// Loader reloads the collections and probes the backend.
type Loader interface {
	Refresh(ctx context.Context) error
	Ready(ctx context.Context) error
}

// SystemHandler exposes health, readiness, metrics and refresh endpoints.
type SystemHandler struct {
	loader       Loader
	metrics      *service.MetricsService
	readyTimeout time.Duration
}

// NewSystemHandler constructs a system handler. metrics may be nil.
func NewSystemHandler(loader Loader, metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{loader: loader, metrics: metrics, readyTimeout: 3 * time.Second}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *SystemHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Ready when the enrollment backend answers.
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readyTimeout)
	defer cancel()
	if err := h.loader.Ready(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"backend": appErrors.FromError(err).Message,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Refresh godoc
// @Summary Reload collections from the backend
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /refresh [post]
func (h *SystemHandler) Refresh(c *gin.Context) {
	if err := h.loader.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "refreshed"})
}

// RefreshForm reloads and returns the browser to the page it came from.
func (h *SystemHandler) RefreshForm(c *gin.Context) {
	_ = h.loader.Refresh(c.Request.Context())
	back := c.PostForm("back")
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = "/"
	}
	c.Redirect(http.StatusSeeOther, back)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"honeypot/internal/honeypot"
	"honeypot/internal/middleware"
	"honeypot/internal/models"
	"honeypot/internal/report"
)

const serviceVersion = "1.0.0"

// Handler handles HTTP requests.
type Handler struct {
	engine *honeypot.Engine
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine *honeypot.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	auth := middleware.APIKeyAuth(apiKey, h.logger)

	api := r.Group("/api/v1", auth)
	{
		api.POST("/analyze", h.Analyze)
		api.POST("/sessions/:id/conclude", h.Conclude)
	}

	// Alias kept for callers using the unversioned path.
	r.POST("/analyze", auth, h.Analyze)

	r.GET("/health", h.Health)
	r.GET("/", h.Info)
}

// Analyze handles one inbound conversation turn.
//
// Internal error detail is never leaked to the sender: processing failures
// map to a generic error body.
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Rejected malformed analyze request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "invalid request format",
		})
		return
	}

	reply, err := h.engine.HandleTurn(c.Request.Context(), req.SessionID, req.Message, req.ConversationHistory, req.Metadata)
	if err != nil {
		h.logger.Error("Failed to process turn",
			zap.Error(err),
			zap.String("session_id", req.SessionID))
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": "processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"reply":  reply,
	})
}

// Conclude handles the external end-of-conversation signal.
func (h *Handler) Conclude(c *gin.Context) {
	sessionID := c.Param("id")

	err := h.engine.Conclude(c.Request.Context(), sessionID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"sessionId": sessionID,
		})
	case errors.Is(err, honeypot.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "session not found",
		})
	case errors.Is(err, report.ErrSinkUnavailable):
		h.logger.Error("Report delivery failed", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "report delivery failed, retry later",
		})
	default:
		h.logger.Error("Failed to conclude session", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "conclude failed",
		})
	}
}

// Health returns service health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "honeypot-api",
		"version": serviceVersion,
	})
}

// Info returns API information.
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Agentic Honeypot API",
		"version":     serviceVersion,
		"description": "Scam detection and intelligence extraction",
		"endpoints": gin.H{
			"analyze":  "POST /api/v1/analyze",
			"conclude": "POST /api/v1/sessions/:id/conclude",
			"health":   "GET /health",
		},
	})
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	miraerrors "mira/internal/errors"
)

// MessageRequest is the inbound chat payload. session_id is opaque and
// caller-supplied; there is no session-creation endpoint.
type MessageRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// MessageResponse is the chat reply payload.
type MessageResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message and session_id are required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message must not be empty"})
		return
	}

	reply, err := s.pipeline.HandleMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		// A plausible-looking greeting on a dead store would silently drop
		// the user's history, so the failure is surfaced as-is.
		if miraerrors.IsStoreUnavailable(err) {
			s.logger.Error("Rejecting request, conversation store unreachable: %v", err)
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "conversation store unavailable"})
			return
		}
		s.logger.Error("Message handling failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Reply: reply, SessionID: req.SessionID})
}

func (s *Server) handleClearSession(c *gin.Context) {
	sessionID := c.Param("id")

	cleared, err := s.sessions.ClearSession(c.Request.Context(), sessionID)
	if err != nil {
		if miraerrors.IsStoreUnavailable(err) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "conversation store unavailable"})
			return
		}
		s.logger.Error("Failed to clear session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "cleared": cleared})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/study"
	"github.com/kapsa-app/backend/internal/validate"
)

type chatReq struct {
	CourseID  string     `json:"courseId"`
	SessionID string     `json:"sessionId"`
	Message   string     `json:"message"`
	History   []wireTurn `json:"history"`
}

func (h *Handler) Chat(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}
	if err := validate.UUID("courseId", req.CourseID); err != nil {
		invalid(c, err)
		return
	}
	if err := validate.UUID("sessionId", req.SessionID); err != nil {
		invalid(c, err)
		return
	}
	message, err := validate.Text("message", req.Message, validate.MaxMessageLen)
	if err != nil {
		invalid(c, err)
		return
	}

	msg, err := h.Svc.CourseChat(c.Request.Context(), uid, study.ChatRequest{
		CourseID:  req.CourseID,
		SessionID: req.SessionID,
		Message:   message,
		History:   historyTurns(req.History),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	common.OK(c, gin.H{"message": msg})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/validate"
)

type assistantReq struct {
	Mode    string     `json:"mode"`
	Message string     `json:"message"`
	History []wireTurn `json:"history"`
}

func (h *Handler) Assistant(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req assistantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	switch req.Mode {
	case "insights":
		insight, err := h.Svc.AssistantInsight(ctx, uid)
		if err != nil {
			h.fail(c, err)
			return
		}
		common.OK(c, gin.H{"insight": insight})

	case "chat":
		message, err := validate.Text("message", req.Message, validate.MaxMessageLen)
		if err != nil {
			invalid(c, err)
			return
		}
		reply, err := h.Svc.AssistantChat(ctx, uid, message, historyTurns(req.History))
		if err != nil {
			h.fail(c, err)
			return
		}
		common.OK(c, gin.H{"message": reply})

	case "calendar_suggestions":
		events, err := h.Svc.SuggestCalendarEvents(ctx, uid)
		if err != nil {
			h.fail(c, err)
			return
		}
		common.OK(c, gin.H{"events": events})

	default:
		badRequest(c, "Invalid mode")
	}
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/study"
	"github.com/kapsa-app/backend/internal/validate"
)

type flashcardsReq struct {
	CourseID   string `json:"courseId"`
	Count      int    `json:"count"`
	MaterialID string `json:"materialId"`
	Topic      string `json:"topic"`
}

func (h *Handler) GenerateFlashcards(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req flashcardsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}
	if err := validate.UUID("courseId", req.CourseID); err != nil {
		invalid(c, err)
		return
	}
	if req.MaterialID != "" {
		if err := validate.UUID("materialId", req.MaterialID); err != nil {
			invalid(c, err)
			return
		}
	}

	deck, err := h.Svc.GenerateFlashcards(c.Request.Context(), uid, study.FlashcardRequest{
		CourseID:   req.CourseID,
		Count:      validate.ClampCount(req.Count, 10, 1, 30),
		MaterialID: req.MaterialID,
		Topic:      validate.Truncate(req.Topic, validate.MaxTopicLen),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	common.OK(c, gin.H{"deck": deck})
}

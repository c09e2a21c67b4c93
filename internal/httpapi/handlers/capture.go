package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/study"
	"github.com/kapsa-app/backend/internal/validate"
)

type captureReq struct {
	CourseID string `json:"courseId"`
	Type     string `json:"type"` // ocr | whisper
	FileURL  string `json:"fileUrl"`
	Title    string `json:"title"`
}

func (h *Handler) Capture(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req captureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}
	if err := validate.UUID("courseId", req.CourseID); err != nil {
		invalid(c, err)
		return
	}
	if req.Type != "ocr" && req.Type != "whisper" {
		badRequest(c, "Invalid type")
		return
	}
	if err := validate.FileURL("fileUrl", req.FileURL); err != nil {
		invalid(c, err)
		return
	}

	material, err := h.Svc.Capture(c.Request.Context(), uid, study.CaptureRequest{
		CourseID: req.CourseID,
		Kind:     req.Type,
		FileURL:  req.FileURL,
		Title:    validate.Truncate(req.Title, validate.MaxTitleLen),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	common.OK(c, gin.H{"material": material})
}

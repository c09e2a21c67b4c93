package study

import (
	"context"
	"strings"
	"time"

	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/validate"
)

type CaptureRequest struct {
	CourseID string
	Kind     string // ocr | whisper
	FileURL  string
	Title    string
}

// Capture runs OCR or transcription on an uploaded file and stores the
// extracted text as course material.
func (s *Service) Capture(ctx context.Context, userID string, req CaptureRequest) (*models.CourseMaterial, error) {
	if _, err := s.repo.GetCourse(ctx, req.CourseID, userID); err != nil {
		return nil, err
	}

	var (
		content      string
		materialType string
		err          error
	)
	switch req.Kind {
	case "whisper":
		content, err = s.ai.Transcribe(ctx, req.FileURL)
		materialType = "audio"
	default:
		content, err = s.ai.ExtractText(ctx, req.FileURL)
		materialType = "pdf"
	}
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		date := time.Now().Format("1/2/2006")
		if materialType == "audio" {
			title = "Transcribed - " + date
		} else {
			title = "Scanned - " + date
		}
	}

	material := models.CourseMaterial{
		CourseID: req.CourseID,
		UserID:   userID,
		Title:    validate.Truncate(title, validate.MaxTitleLen),
		Type:     materialType,
		Content:  strings.TrimSpace(content),
		FileURL:  req.FileURL,
	}
	if err := s.repo.InsertMaterial(ctx, &material); err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "capture_"+req.Kind)
	return &material, nil
}

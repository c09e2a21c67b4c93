package study

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
)

// fakeRunner returns scripted replies per Generate call and records every
// prompt it saw.
type fakeRunner struct {
	replies    []string
	err        error
	calls      []replicate.GenerateParams
	ocrText    string
	transcript string
}

func (f *fakeRunner) Generate(ctx context.Context, p replicate.GenerateParams) (string, error) {
	_ = ctx
	f.calls = append(f.calls, p)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.calls) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	if i < 0 {
		return "", nil
	}
	return f.replies[i], nil
}

func (f *fakeRunner) ExtractText(ctx context.Context, imageURL string) (string, error) {
	_ = ctx
	_ = imageURL
	return f.ocrText, f.err
}

func (f *fakeRunner) Transcribe(ctx context.Context, audioURL string) (string, error) {
	_ = ctx
	_ = audioURL
	return f.transcript, f.err
}

type fakeVerifier struct {
	deleted    []string
	deleteErr  error
	tokenUsers map[string]string
}

func (f *fakeVerifier) UserFromToken(token string) (string, error) {
	if uid, ok := f.tokenUsers[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func (f *fakeVerifier) DeleteUser(ctx context.Context, userID string) error {
	_ = ctx
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, ai *fakeRunner) (*Service, *fakeVerifier) {
	t.Helper()
	v := &fakeVerifier{}
	svc := NewService(NewRepo(db), ai, v, nil, logger.NewNop())
	return svc, v
}

func seedCourse(t *testing.T, db *gorm.DB, userID, title string) *models.Course {
	t.Helper()
	c := &models.Course{UserID: userID, Title: title}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func seedMaterial(t *testing.T, db *gorm.DB, course *models.Course, title, content string) *models.CourseMaterial {
	t.Helper()
	m := &models.CourseMaterial{
		CourseID: course.ID,
		UserID:   course.UserID,
		Title:    title,
		Type:     "notes",
		Content:  content,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed material: %v", err)
	}
	return m
}

func TestTrackUsage_IncrementsRow(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, &fakeRunner{})

	userID := uuid.NewString()
	svc.trackUsage(context.Background(), userID, "flashcards")
	svc.trackUsage(context.Background(), userID, "flashcards")
	svc.trackUsage(context.Background(), userID, "chat")

	var rec models.UsageRecord
	if err := db.Where("user_id = ? AND feature = ?", userID, "flashcards").First(&rec).Error; err != nil {
		t.Fatalf("usage row missing: %v", err)
	}
	if rec.Count != 2 {
		t.Fatalf("expected count 2, got %d", rec.Count)
	}

	var total int64
	if err := db.Model(&models.UsageRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 feature rows, got %d", total)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kapsa-app/backend/internal/auth"
	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/study"
)

type fakeRunner struct {
	reply string
	err   error
	calls int
}

func (f *fakeRunner) Generate(ctx context.Context, p replicate.GenerateParams) (string, error) {
	_ = ctx
	_ = p
	f.calls++
	return f.reply, f.err
}

func (f *fakeRunner) ExtractText(ctx context.Context, imageURL string) (string, error) {
	_ = ctx
	_ = imageURL
	f.calls++
	return f.reply, f.err
}

func (f *fakeRunner) Transcribe(ctx context.Context, audioURL string) (string, error) {
	_ = ctx
	_ = audioURL
	f.calls++
	return f.reply, f.err
}

type fakeVerifier struct {
	users   map[string]string // token -> user id
	deleted []string
}

func (f *fakeVerifier) UserFromToken(token string) (string, error) {
	if uid, ok := f.users[token]; ok {
		return uid, nil
	}
	return "", auth.ErrUnauthenticated
}

func (f *fakeVerifier) DeleteUser(ctx context.Context, userID string) error {
	_ = ctx
	f.deleted = append(f.deleted, userID)
	return nil
}

type fixture struct {
	db       *gorm.DB
	ai       *fakeRunner
	verifier *fakeVerifier
	router   *gin.Engine
	userID   string
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	userID := uuid.NewString()
	ai := &fakeRunner{}
	verifier := &fakeVerifier{users: map[string]string{"good-token": userID}}
	svc := study.NewService(study.NewRepo(db), ai, verifier, nil, logger.NewNop())
	h := NewHandler(svc, logger.NewNop())

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(auth.Required(verifier))
	v1.POST("/assistant", h.Assistant)
	v1.POST("/chat", h.Chat)
	v1.POST("/flashcards", h.GenerateFlashcards)
	v1.POST("/quiz", h.Quiz)
	v1.POST("/capture", h.Capture)
	v1.DELETE("/account", h.DeleteAccount)

	return &fixture{db: db, ai: ai, verifier: verifier, router: r, userID: userID, token: "good-token"}
}

func (fx *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fx.token)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error
}

func (fx *fixture) seedCourse(t *testing.T, userID, title string) *models.Course {
	t.Helper()
	c := &models.Course{UserID: userID, Title: title}
	if err := fx.db.Create(c).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func TestAuth_MissingHeader(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/flashcards", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "No authorization header" {
		t.Fatalf("unexpected error: %q", got)
	}
}

func TestAuth_BadToken(t *testing.T) {
	fx := newFixture(t)
	fx.token = "forged"

	w := fx.do(t, http.MethodPost, "/v1/flashcards", gin.H{"courseId": uuid.NewString()})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFlashcards_MalformedCourseID(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(t, http.MethodPost, "/v1/flashcards", gin.H{"courseId": "abc' OR 1=1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "Invalid courseId" {
		t.Fatalf("unexpected error: %q", got)
	}
	if fx.ai.calls != 0 {
		t.Fatalf("validation failure must not reach inference, got %d calls", fx.ai.calls)
	}
}

func TestFlashcards_OtherUsersCourseIs404(t *testing.T) {
	fx := newFixture(t)
	course := fx.seedCourse(t, uuid.NewString(), "Someone else's")

	w := fx.do(t, http.MethodPost, "/v1/flashcards", gin.H{"courseId": course.ID})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "Course not found" {
		t.Fatalf("unexpected error: %q", got)
	}
	if fx.ai.calls != 0 {
		t.Fatalf("ownership failure must not reach inference")
	}
}

func TestFlashcards_CountClamped(t *testing.T) {
	fx := newFixture(t)
	fx.ai.reply = `[{"topic": "T", "answer": "A"}]`
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/flashcards", gin.H{"courseId": course.ID, "count": 999})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Deck models.FlashcardDeck `json:"deck"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Deck.CardCount != 1 {
		t.Fatalf("card count must match inserted cards, got %d", resp.Deck.CardCount)
	}
}

func TestQuiz_InvalidAction(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(t, http.MethodPost, "/v1/quiz", gin.H{"action": "destroy", "courseId": uuid.NewString()})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestQuiz_GenerateAndEvaluate(t *testing.T) {
	fx := newFixture(t)
	fx.ai.reply = `[{"question": "Q1?", "correct_answer": "A1"}]`
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/quiz", gin.H{"action": "generate", "courseId": course.ID, "count": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var genResp struct {
		Test      models.Test           `json:"test"`
		Questions []models.TestQuestion `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &genResp); err != nil {
		t.Fatalf("decode generate: %v", err)
	}
	if len(genResp.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(genResp.Questions))
	}

	fx.ai.reply = `[{"is_correct": true, "ai_insight": "Nice."}]`
	w = fx.do(t, http.MethodPost, "/v1/quiz", gin.H{
		"action": "evaluate",
		"testId": genResp.Test.ID,
		"answers": []gin.H{
			{"questionId": genResp.Questions[0].ID, "answer": "A1"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var evalResp struct {
		Test models.Test `json:"test"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &evalResp); err != nil {
		t.Fatalf("decode evaluate: %v", err)
	}
	if evalResp.Test.Grade == nil || *evalResp.Test.Grade != "A+" {
		t.Fatalf("expected A+ for a perfect score, got %v", evalResp.Test.Grade)
	}
}

func TestQuiz_EvaluateWithoutAnswers(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(t, http.MethodPost, "/v1/quiz", gin.H{"action": "evaluate", "testId": uuid.NewString()})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChat_MessageRequired(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(t, http.MethodPost, "/v1/chat", gin.H{
		"courseId":  uuid.NewString(),
		"sessionId": uuid.NewString(),
		"message":   "   ",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "message is required" {
		t.Fatalf("unexpected error: %q", got)
	}
}

func TestCapture_InvalidType(t *testing.T) {
	fx := newFixture(t)
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/capture", gin.H{
		"courseId": course.ID,
		"type":     "video",
		"fileUrl":  "https://cdn.example.com/a.mp4",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCapture_InvalidFileURL(t *testing.T) {
	fx := newFixture(t)
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/capture", gin.H{
		"courseId": course.ID,
		"type":     "ocr",
		"fileUrl":  "ftp://example.com/scan.jpg",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fx.ai.calls != 0 {
		t.Fatalf("invalid url must not reach inference")
	}
}

func TestCapture_OCRHappyPath(t *testing.T) {
	fx := newFixture(t)
	fx.ai.reply = "Extracted page text"
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/capture", gin.H{
		"courseId": course.ID,
		"type":     "ocr",
		"fileUrl":  "https://cdn.example.com/scan.jpg",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Material models.CourseMaterial `json:"material"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Material.Type != "pdf" || resp.Material.Content != "Extracted page text" {
		t.Fatalf("unexpected material: %#v", resp.Material)
	}
}

func TestAssistant_InvalidMode(t *testing.T) {
	fx := newFixture(t)

	w := fx.do(t, http.MethodPost, "/v1/assistant", gin.H{"mode": "hack"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAssistant_InsightsMode(t *testing.T) {
	fx := newFixture(t)
	fx.ai.reply = `{"title": "Keep it up", "body": "Nice streak.", "type": "streak"}`

	w := fx.do(t, http.MethodPost, "/v1/assistant", gin.H{"mode": "insights"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Insight study.Insight `json:"insight"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Insight.Title != "Keep it up" {
		t.Fatalf("unexpected insight: %#v", resp.Insight)
	}
}

func TestDeleteAccount(t *testing.T) {
	fx := newFixture(t)
	fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodDelete, "/v1/account", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(fx.verifier.deleted) != 1 || fx.verifier.deleted[0] != fx.userID {
		t.Fatalf("identity not deleted: %v", fx.verifier.deleted)
	}

	var n int64
	if err := fx.db.Model(&models.Course{}).Where("user_id = ?", fx.userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("courses must be erased, found %d", n)
	}
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	fx := newFixture(t)
	fx.ai.err = errors.New("socket exploded somewhere deep")
	course := fx.seedCourse(t, fx.userID, "Biology 101")

	w := fx.do(t, http.MethodPost, "/v1/flashcards", gin.H{"courseId": course.ID})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := errorBody(t, w); got == "" || bytes.Contains(w.Body.Bytes(), []byte("socket exploded")) {
		t.Fatalf("internal detail must not leak: %q", got)
	}
}

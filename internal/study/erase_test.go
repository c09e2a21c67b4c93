package study

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kapsa-app/backend/internal/models"
)

// seedEverything creates one row in every user-owned table.
func seedEverything(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()

	if err := db.Create(&models.Profile{ID: userID, FullName: "Ana García"}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	course := seedCourse(t, db, userID, "Biology 101")
	seedMaterial(t, db, course, "Chapter 1", "content")

	session := &models.ChatSession{UserID: userID, CourseID: course.ID}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := db.Create(&models.ChatMessage{SessionID: session.ID, UserID: userID, Role: "user", Content: "hi"}).Error; err != nil {
		t.Fatalf("seed message: %v", err)
	}

	deck := &models.FlashcardDeck{CourseID: course.ID, UserID: userID, Title: "Deck", CardCount: 1}
	if err := db.Create(deck).Error; err != nil {
		t.Fatalf("seed deck: %v", err)
	}
	if err := db.Create(&models.Flashcard{DeckID: deck.ID, Topic: "T", Answer: "A", Status: "new"}).Error; err != nil {
		t.Fatalf("seed card: %v", err)
	}

	test := &models.Test{CourseID: course.ID, UserID: userID, Title: "Quiz", TotalCount: 1}
	if err := db.Create(test).Error; err != nil {
		t.Fatalf("seed test: %v", err)
	}
	if err := db.Create(&models.TestQuestion{TestID: test.ID, QuestionNumber: 1, Question: "Q?", CorrectAnswer: "A"}).Error; err != nil {
		t.Fatalf("seed question: %v", err)
	}

	if err := db.Create(&models.CalendarEvent{UserID: userID, Title: "Exam", Type: "exam"}).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	if err := db.Create(&models.UsageRecord{UserID: userID, Feature: "chat", Day: "2026-08-31", Count: 3}).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}
}

func countFor(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestEraseAccount_RemovesAllUserData(t *testing.T) {
	db := openTestDB(t)
	svc, verifier := newTestService(t, db, &fakeRunner{})

	userID := uuid.NewString()
	bystander := uuid.NewString()
	seedEverything(t, db, userID)
	seedEverything(t, db, bystander)

	if err := svc.EraseAccount(context.Background(), userID); err != nil {
		t.Fatalf("erase account: %v", err)
	}

	userOwned := []any{
		&models.Profile{},
		&models.Course{},
		&models.CourseMaterial{},
		&models.FlashcardDeck{},
		&models.Test{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.CalendarEvent{},
		&models.UsageRecord{},
	}
	for _, m := range userOwned {
		col := "user_id"
		if _, ok := m.(*models.Profile); ok {
			col = "id"
		}
		if n := countFor(t, db, m, col+" = ?", userID); n != 0 {
			t.Fatalf("expected 0 rows of %T for erased user, got %d", m, n)
		}
		if n := countFor(t, db, m, col+" = ?", bystander); n != 1 {
			t.Fatalf("bystander rows of %T must survive, got %d", m, n)
		}
	}

	// child tables without a user_id column
	if n := countFor(t, db, &models.Flashcard{}, "1 = 1"); n != 1 {
		t.Fatalf("expected only the bystander's flashcard to remain, got %d", n)
	}
	if n := countFor(t, db, &models.TestQuestion{}, "1 = 1"); n != 1 {
		t.Fatalf("expected only the bystander's question to remain, got %d", n)
	}

	if len(verifier.deleted) != 1 || verifier.deleted[0] != userID {
		t.Fatalf("auth identity not deleted: %v", verifier.deleted)
	}
}

func TestEraseAccount_AuthDeleteFailureSurfaces(t *testing.T) {
	db := openTestDB(t)
	ai := &fakeRunner{}
	svc, verifier := newTestService(t, db, ai)
	verifier.deleteErr = errors.New("admin api down")

	userID := uuid.NewString()
	seedEverything(t, db, userID)

	err := svc.EraseAccount(context.Background(), userID)
	if err == nil {
		t.Fatalf("expected error when identity deletion fails")
	}

	// data wipe committed before the identity call
	if n := countFor(t, db, &models.Course{}, "user_id = ?", userID); n != 0 {
		t.Fatalf("data should already be erased, found %d courses", n)
	}
}

package study

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kapsa-app/backend/internal/models"
)

// ErrNotFound covers both a missing row and a row owned by someone else.
// The two are deliberately indistinguishable so record ids cannot be
// enumerated across users.
var ErrNotFound = errors.New("not found")

// NotFoundError names the resource for the client-facing message while
// still matching ErrNotFound.
type NotFoundError struct{ Resource string }

func (e *NotFoundError) Error() string { return e.Resource + " not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) DB() *gorm.DB { return r.db }

// Every lookup below filters by user id as well as record id, even when an
// ownership check already ran earlier in the request.

func (r *Repo) GetCourse(ctx context.Context, courseID, userID string) (*models.Course, error) {
	var c models.Course
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", courseID, userID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Course"}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetTest(ctx context.Context, testID, userID string) (*models.Test, error) {
	var t models.Test
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", testID, userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Test"}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "Session"}
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListMaterials returns up to limit materials with non-empty content for
// the course, optionally narrowed to one material.
func (r *Repo) ListMaterials(ctx context.Context, courseID, userID, materialID string, limit int) ([]models.CourseMaterial, error) {
	q := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Where("content IS NOT NULL AND content <> ''")
	if materialID != "" {
		q = q.Where("id = ?", materialID)
	}
	var out []models.CourseMaterial
	if err := q.Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) InsertMaterial(ctx context.Context, m *models.CourseMaterial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) InsertChatMessage(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateDeck inserts the deck and its cards atomically. deck.CardCount must
// already equal len(cards).
func (r *Repo) CreateDeck(ctx context.Context, deck *models.FlashcardDeck, cards []models.Flashcard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deck).Error; err != nil {
			return err
		}
		for i := range cards {
			cards[i].DeckID = deck.ID
		}
		return tx.Create(&cards).Error
	})
}

// CreateTest inserts the test and its questions atomically.
func (r *Repo) CreateTest(ctx context.Context, test *models.Test, questions []models.TestQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(test).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].TestID = test.ID
		}
		return tx.Create(&questions).Error
	})
}

func (r *Repo) ListQuestions(ctx context.Context, testID string) ([]models.TestQuestion, error) {
	var out []models.TestQuestion
	err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("question_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyEvaluation persists the graded questions and the test's score in one
// transaction: a failed question update rolls back the score update too.
func (r *Repo) ApplyEvaluation(ctx context.Context, test *models.Test, questions []models.TestQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Test{}).
			Where("id = ? AND user_id = ?", test.ID, test.UserID).
			Updates(map[string]any{
				"score":           test.Score,
				"grade":           test.Grade,
				"correct_count":   test.CorrectCount,
				"motivation_text": test.MotivationText,
			}).Error
		if err != nil {
			return err
		}
		for _, q := range questions {
			err := tx.Model(&models.TestQuestion{}).
				Where("id = ? AND test_id = ?", q.ID, test.ID).
				Updates(map[string]any{
					"user_answer": q.UserAnswer,
					"is_correct":  q.IsCorrect,
					"ai_insight":  q.AIInsight,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ── Assistant context reads ──────────────────────────────────────────

func (r *Repo) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // profile is optional context, not an ownership gate
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) ListCourses(ctx context.Context, userID string) ([]models.Course, error) {
	var out []models.Course
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) ListRecentTests(ctx context.Context, userID string, limit int) ([]models.Test, error) {
	var out []models.Test
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Repo) ListUpcomingEvents(ctx context.Context, userID string, from time.Time, limit int) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ?", userID, from).
		Order("start_time ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Repo) ListRecentMaterials(ctx context.Context, userID string, limit int) ([]models.CourseMaterial, error) {
	var out []models.CourseMaterial
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListWrongQuestions returns recently missed questions across the given
// tests; they feed the weak-topics section of the assistant prompt.
func (r *Repo) ListWrongQuestions(ctx context.Context, testIDs []string, limit int) ([]models.TestQuestion, error) {
	if len(testIDs) == 0 {
		return nil, nil
	}
	var out []models.TestQuestion
	err := r.db.WithContext(ctx).
		Where("test_id IN ? AND is_correct = ?", testIDs, false).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// FlashcardStats aggregates card status over the user's decks.
type FlashcardStats struct {
	Mastered int64
	Learning int64
	New      int64
}

func (r *Repo) GetFlashcardStats(ctx context.Context, userID string) (*FlashcardStats, error) {
	deckScope := r.db.WithContext(ctx).
		Model(&models.FlashcardDeck{}).
		Select("id").
		Where("user_id = ?", userID)

	var stats FlashcardStats
	counts := []struct {
		status string
		dest   *int64
	}{
		{"mastered", &stats.Mastered},
		{"learning", &stats.Learning},
		{"new", &stats.New},
	}
	for _, c := range counts {
		err := r.db.WithContext(ctx).
			Model(&models.Flashcard{}).
			Where("deck_id IN (?) AND status = ?", deckScope, c.status).
			Count(c.dest).Error
		if err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func (r *Repo) InsertCalendarEvent(ctx context.Context, e *models.CalendarEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// ── Usage tracking ───────────────────────────────────────────────────

func (r *Repo) IncrementUsage(ctx context.Context, userID, feature, day string) error {
	tx := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("user_id = ? AND feature = ? AND day = ?", userID, feature, day).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&models.UsageRecord{
			UserID:  userID,
			Feature: feature,
			Day:     day,
			Count:   1,
		}).Error
	}
	return nil
}

// ── Account erasure ──────────────────────────────────────────────────

// EraseUser removes every row belonging to the user, children before
// parents. Runs in one transaction.
func (r *Repo) EraseUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionIDs := tx.Model(&models.ChatSession{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("session_id IN (?)", sessionIDs).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.ChatSession{}).Error; err != nil {
			return err
		}

		deckIDs := tx.Model(&models.FlashcardDeck{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("deck_id IN (?)", deckIDs).Delete(&models.Flashcard{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.FlashcardDeck{}).Error; err != nil {
			return err
		}

		testIDs := tx.Model(&models.Test{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("test_id IN (?)", testIDs).Delete(&models.TestQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Test{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CourseMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Course{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.CalendarEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UsageRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&models.Profile{}).Error
	})
}

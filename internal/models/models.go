package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Row types for the study schema. Primary keys are UUID strings assigned
// on create so the same models work against Postgres and the in-memory
// sqlite used by tests.

type Profile struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"` // equals the auth provider's user id
	FullName   string    `gorm:"type:varchar(200)" json:"full_name"`
	StreakDays int       `gorm:"not null;default:0" json:"streak_days"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

type Course struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"-"`
	Title     string     `gorm:"type:varchar(200);not null" json:"title"`
	Subtitle  string     `gorm:"type:varchar(200)" json:"subtitle"`
	Progress  float64    `gorm:"not null;default:0" json:"progress"`
	ExamDate  *time.Time `json:"exam_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type CourseMaterial struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string    `gorm:"type:uuid;index;not null" json:"course_id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"-"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"` // pdf | audio | notes
	Content   string    `gorm:"type:text" json:"content"`
	FileURL   string    `gorm:"type:text" json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (CourseMaterial) TableName() string { return "course_materials" }

func (m *CourseMaterial) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type FlashcardDeck struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string    `gorm:"type:uuid;index;not null" json:"course_id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"-"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	CardCount int       `gorm:"not null" json:"card_count"`
	CreatedAt time.Time `json:"created_at"`
}

func (FlashcardDeck) TableName() string { return "flashcard_decks" }

func (d *FlashcardDeck) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type Flashcard struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	DeckID         string    `gorm:"type:uuid;index;not null" json:"deck_id"`
	Topic          string    `gorm:"type:varchar(200);not null" json:"topic"`
	QuestionBefore string    `gorm:"type:text" json:"question_before"`
	Keyword        string    `gorm:"type:varchar(200)" json:"keyword"`
	QuestionAfter  string    `gorm:"type:text" json:"question_after"`
	Answer         string    `gorm:"type:text" json:"answer"`
	Status         string    `gorm:"type:varchar(16);not null;default:new" json:"status"` // new | learning | mastered
	CreatedAt      time.Time `json:"created_at"`
}

func (Flashcard) TableName() string { return "flashcards" }

func (f *Flashcard) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

type Test struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID       string    `gorm:"type:uuid;index;not null" json:"course_id"`
	UserID         string    `gorm:"type:uuid;index;not null" json:"-"`
	Title          string    `gorm:"type:varchar(200);not null" json:"title"`
	TotalCount     int       `gorm:"not null" json:"total_count"`
	CorrectCount   int       `gorm:"not null;default:0" json:"correct_count"`
	Score          *float64  `json:"score"`
	Grade          *string   `gorm:"type:varchar(4)" json:"grade"`
	MotivationText *string   `gorm:"type:text" json:"motivation_text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Test) TableName() string { return "tests" }

func (t *Test) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

type TestQuestion struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	TestID         string    `gorm:"type:uuid;index;not null" json:"test_id"`
	QuestionNumber int       `gorm:"not null" json:"question_number"`
	Question       string    `gorm:"type:text;not null" json:"question"`
	CorrectAnswer  string    `gorm:"type:text;not null" json:"correct_answer"`
	UserAnswer     *string   `gorm:"type:text" json:"user_answer"`
	IsCorrect      *bool     `json:"is_correct"`
	AIInsight      *string   `gorm:"type:text" json:"ai_insight"`
	CreatedAt      time.Time `json:"created_at"`
}

func (TestQuestion) TableName() string { return "test_questions" }

func (q *TestQuestion) BeforeCreate(*gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

type ChatSession struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"-"`
	CourseID  string    `gorm:"type:uuid;index;not null" json:"course_id"`
	Title     string    `gorm:"type:varchar(200)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

func (s *ChatSession) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type ChatMessage struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"type:uuid;index;not null" json:"session_id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Citations []string  `gorm:"type:text;serializer:json" json:"citations"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type CalendarEvent struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"-"`
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	Type         string    `gorm:"type:varchar(32);not null" json:"type"`
	StartTime    time.Time `gorm:"index;not null" json:"start_time"`
	EndTime      time.Time `gorm:"not null" json:"end_time"`
	Description  string    `gorm:"type:text" json:"description"`
	AISuggestion string    `gorm:"type:text" json:"ai_suggestion"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CalendarEvent) TableName() string { return "calendar_events" }

func (e *CalendarEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// UsageRecord counts AI feature invocations per user and day.
type UsageRecord struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index:idx_usage_user_feature_day,priority:1;not null" json:"-"`
	Feature   string    `gorm:"type:varchar(32);index:idx_usage_user_feature_day,priority:2;not null" json:"feature"`
	Day       string    `gorm:"type:varchar(10);index:idx_usage_user_feature_day,priority:3;not null" json:"day"` // YYYY-MM-DD
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UsageRecord) TableName() string { return "usage_tracking" }

func (u *UsageRecord) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// All lists every model for migration.
func All() []any {
	return []any{
		&Profile{},
		&Course{},
		&CourseMaterial{},
		&FlashcardDeck{},
		&Flashcard{},
		&Test{},
		&TestQuestion{},
		&ChatSession{},
		&ChatMessage{},
		&CalendarEvent{},
		&UsageRecord{},
	}
}

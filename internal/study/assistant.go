package study

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapsa-app/backend/internal/language"
	"github.com/kapsa-app/backend/internal/modelout"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/validate"
)

type AssistantRequest struct {
	Mode    string // insights | chat | calendar_suggestions
	Message string
	History []ChatTurn
}

type Insight struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type"`
}

type AssistantReply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// assistantContext is everything the assistant knows about the student.
type assistantContext struct {
	profile      *models.Profile
	courses      []models.Course
	recentTests  []models.Test
	stats        *FlashcardStats
	events       []models.CalendarEvent
	materials    []models.CourseMaterial
	weakTopics   []string
	responseLang string
	messageLang  string
	materialLang string
}

func (s *Service) gatherContext(ctx context.Context, userID, message string) (*assistantContext, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.ListCourses(ctx, userID)
	if err != nil {
		return nil, err
	}
	recentTests, err := s.repo.ListRecentTests(ctx, userID, 5)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.GetFlashcardStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListUpcomingEvents(ctx, userID, time.Now(), 10)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.ListRecentMaterials(ctx, userID, 10)
	if err != nil {
		return nil, err
	}

	testIDs := make([]string, 0, len(recentTests))
	for _, t := range recentTests {
		testIDs = append(testIDs, t.ID)
	}
	wrong, err := s.repo.ListWrongQuestions(ctx, testIDs, 10)
	if err != nil {
		return nil, err
	}
	weakTopics := make([]string, 0, len(wrong))
	for _, q := range wrong {
		weakTopics = append(weakTopics, validate.Truncate(q.Question, 60))
	}

	// The assistant uses the loose thresholds: short greetings like "hola"
	// should still pick up a language signal.
	messageLang := language.English
	if message != "" {
		messageLang = language.Detect(message, 10, 2)
	}
	var materialSample strings.Builder
	for _, m := range materials {
		materialSample.WriteString(validate.Truncate(m.Content, 200))
		materialSample.WriteString(" ")
	}
	materialLang := language.Detect(materialSample.String(), 10, 2)

	responseLang := messageLang
	if responseLang == language.English && materialLang != language.English {
		responseLang = materialLang
	}

	return &assistantContext{
		profile:      profile,
		courses:      courses,
		recentTests:  recentTests,
		stats:        stats,
		events:       events,
		materials:    materials,
		weakTopics:   weakTopics,
		responseLang: responseLang,
		messageLang:  messageLang,
		materialLang: materialLang,
	}, nil
}

func (ac *assistantContext) firstName() string {
	if ac.profile == nil {
		return "Student"
	}
	parts := strings.Fields(ac.profile.FullName)
	if len(parts) == 0 {
		return "Student"
	}
	return parts[0]
}

func (ac *assistantContext) lastName() string {
	if ac.profile == nil {
		return ""
	}
	parts := strings.Fields(ac.profile.FullName)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

func (ac *assistantContext) systemPrompt() string {
	courseLines := make([]string, 0, 5)
	for i, c := range ac.courses {
		if i == 5 {
			break
		}
		examInfo := ""
		if c.ExamDate != nil {
			examInfo = " | Exam: " + c.ExamDate.Format("1/2/2006")
		}
		courseLines = append(courseLines, fmt.Sprintf("- %s (%d%%%s)", c.Title, int(c.Progress*100+0.5), examInfo))
	}
	courseSummaries := strings.Join(courseLines, "\n")
	if courseSummaries == "" {
		courseSummaries = "No courses yet."
	}

	testLines := make([]string, 0, 3)
	for i, t := range ac.recentTests {
		if i == 3 {
			break
		}
		title := t.Title
		if title == "" {
			title = "Quiz"
		}
		grade := "N/A"
		if t.Grade != nil {
			grade = *t.Grade
		}
		testLines = append(testLines, fmt.Sprintf("- %s: %s (%d/%d)", title, grade, t.CorrectCount, t.TotalCount))
	}
	testSummaries := strings.Join(testLines, "\n")
	if testSummaries == "" {
		testSummaries = "No quizzes taken yet."
	}

	eventLines := make([]string, 0, 5)
	for i, e := range ac.events {
		if i == 5 {
			break
		}
		eventLines = append(eventLines, fmt.Sprintf("- %s (%s) on %s", e.Title, e.Type, e.StartTime.Format("1/2/2006")))
	}
	eventSummaries := strings.Join(eventLines, "\n")
	if eventSummaries == "" {
		eventSummaries = "No upcoming events."
	}

	weakTopicsLine := "No weak areas identified yet."
	if len(ac.weakTopics) > 0 {
		top := ac.weakTopics
		if len(top) > 5 {
			top = top[:5]
		}
		weakTopicsLine = "Weak areas: " + strings.Join(top, "; ")
	}

	fcStats := "No flashcard data yet."
	if ac.stats != nil {
		fcStats = fmt.Sprintf("Flashcards: %d mastered, %d learning, %d new",
			ac.stats.Mastered, ac.stats.Learning, ac.stats.New)
	}

	streak := 0
	if ac.profile != nil {
		streak = ac.profile.StreakDays
	}

	return fmt.Sprintf(`You are The Oracle, a personal AI study assistant for %s in the Kapsa app.

CRITICAL LANGUAGE RULE: You MUST respond in %s. The student communicates in %s and their course materials are in %s. Always match the student's language. If they write in Spanish, respond entirely in Spanish. If English, respond in English. Never mix languages.

STUDENT PROFILE:
- Name: %s %s
- Streak: %d days
- Total courses: %d

COURSES:
%s

RECENT QUIZ RESULTS:
%s

%s

%s

UPCOMING EVENTS:
%s

RULES:
- Be encouraging, warm, and concise
- Reference specific courses, scores, and dates when relevant
- Suggest actionable study strategies
- If they have upcoming exams, prioritize exam prep advice
- Keep responses under 150 words for insights mode, normal length for chat mode
- Use the student's name occasionally
- Never make up data not provided above`,
		ac.firstName(), ac.responseLang, ac.messageLang, ac.materialLang,
		ac.firstName(), ac.lastName(), streak, len(ac.courses),
		courseSummaries, testSummaries, fcStats, weakTopicsLine, eventSummaries)
}

// AssistantInsight generates one personalized study insight.
func (s *Service) AssistantInsight(ctx context.Context, userID string) (*Insight, error) {
	ac, err := s.gatherContext(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelGemma,
		Prompt:       insightPrompt(ac.responseLang),
		SystemPrompt: ac.systemPrompt(),
		MaxTokens:    256,
	})
	if err != nil {
		return nil, err
	}

	fallbackTitle := "Study Tip"
	if ac.responseLang == language.Spanish {
		fallbackTitle = "Consejo de Estudio"
	}

	obj, err := modelout.Object(raw)
	if err != nil {
		// unparseable output is still useful prose
		return &Insight{
			Title: fallbackTitle,
			Body:  validate.Truncate(raw, 200),
			Type:  "progress",
		}, nil
	}

	insight := &Insight{
		Title: modelout.Str(obj, "title"),
		Body:  modelout.Str(obj, "body"),
		Type:  modelout.Str(obj, "type"),
	}
	if insight.Title == "" {
		insight.Title = fallbackTitle
	}
	if insight.Body == "" {
		insight.Body = validate.Truncate(raw, 200)
	}
	if insight.Type == "" {
		insight.Type = "progress"
	}

	s.trackUsage(ctx, userID, "assistant_insights")
	return insight, nil
}

func insightPrompt(lang string) string {
	if lang == language.Spanish {
		return `Basado en los datos del estudiante, genera una perspectiva de estudio personalizada. Considera:
1. Exámenes próximos
2. Rendimiento reciente en quizzes y áreas débiles
3. Racha de estudio
4. Repaso de flashcards
5. Progreso de cursos
Responde con JSON: { "title": "título corto (max 6 palabras)", "body": "consejo accionable (max 2 oraciones)", "type": "exam_prep|weak_area|streak|review|progress" }`
	}
	return `Based on the student's data, generate a single personalized study insight or reminder. Consider:
1. Upcoming exams and how soon they are
2. Recent quiz performance and weak areas
3. Study streak maintenance
4. Flashcard review suggestions
5. Course progress
Respond with JSON: { "title": "short title (max 6 words)", "body": "actionable insight (max 2 sentences)", "type": "exam_prep|weak_area|streak|review|progress" }`
}

// AssistantChat answers a free-form student message with the full personal
// context. Nothing is persisted; this is the dashboard companion, not the
// course tutor.
func (s *Service) AssistantChat(ctx context.Context, userID, message string, history []ChatTurn) (*AssistantReply, error) {
	ac, err := s.gatherContext(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	// keep the last 8 turns
	if len(history) > 8 {
		history = history[len(history)-8:]
	}
	var b strings.Builder
	for _, h := range history {
		if h.Role == "user" {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(h.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")

	reply, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelGemma,
		Prompt:       b.String(),
		SystemPrompt: ac.systemPrompt(),
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "assistant_chat")
	return &AssistantReply{Role: "assistant", Content: strings.TrimSpace(reply)}, nil
}

// SuggestCalendarEvents asks the model for 3-5 study sessions over the next
// week and inserts them item-by-item. A failed insert skips that event and
// keeps going; partial success is expected here.
func (s *Service) SuggestCalendarEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	ac, err := s.gatherContext(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelGemma,
		Prompt:       calendarPrompt(ac.responseLang, time.Now()),
		SystemPrompt: ac.systemPrompt(),
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, err
	}

	suggestions, err := modelout.Array(raw)
	if err != nil {
		// no parseable suggestions: not fatal, return the empty set
		return []models.CalendarEvent{}, nil
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}

	defaultTitle := "Study Session"
	if ac.responseLang == language.Spanish {
		defaultTitle = "Sesión de Estudio"
	}

	created := make([]models.CalendarEvent, 0, len(suggestions))
	for _, item := range suggestions {
		obj := modelout.AsObject(item)

		start := time.Now().AddDate(0, 0, modelout.Int(obj, "days_from_today", 0))
		startHour := modelout.Int(obj, "start_hour", 14)
		start = time.Date(start.Year(), start.Month(), start.Day(), startHour, 0, 0, 0, start.Location())
		end := start.Add(time.Duration(modelout.Int(obj, "duration_minutes", 45)) * time.Minute)

		title := modelout.Str(obj, "title")
		if title == "" {
			title = defaultTitle
		}

		event := models.CalendarEvent{
			UserID:       userID,
			Title:        validate.Truncate(title, validate.MaxTitleLen),
			Type:         "suggestion",
			StartTime:    start,
			EndTime:      end,
			Description:  validate.Truncate(modelout.Str(obj, "description"), maxInsightLen),
			AISuggestion: validate.Truncate(modelout.Str(obj, "ai_suggestion"), maxInsightLen),
		}
		if err := s.repo.InsertCalendarEvent(ctx, &event); err != nil {
			s.log.Warn("calendar suggestion insert failed", "user_id", userID, "err", err)
			continue
		}
		created = append(created, event)
	}

	s.trackUsage(ctx, userID, "assistant_calendar")
	return created, nil
}

func calendarPrompt(lang string, now time.Time) string {
	today := now.Format("2006-01-02")
	if lang == language.Spanish {
		return fmt.Sprintf(`Basado en los cursos del estudiante, exámenes, áreas débiles y resultados, sugiere 3-5 eventos de estudio para los próximos 7 días.
Hoy es %s.
Para cada evento responde con JSON array:
[{ "title": "título del evento (en español)", "type": "suggestion", "start_hour": 14, "duration_minutes": 45, "days_from_today": 0, "description": "por qué esta sesión", "ai_suggestion": "consejo breve" }]
Prioriza:
1. Cursos con exámenes próximos
2. Áreas débiles que necesitan repaso
3. Sesiones de repaso de flashcards
4. Timing de repetición espaciada`, today)
	}
	return fmt.Sprintf(`Based on the student's courses, upcoming exams, weak areas, and quiz results, suggest 3-5 study events for the next 7 days.
Today is %s.
For each event respond with JSON array:
[{ "title": "event title", "type": "suggestion", "start_hour": 14, "duration_minutes": 45, "days_from_today": 0, "description": "why this session", "ai_suggestion": "brief tip" }]
Prioritize:
1. Upcoming exam courses
2. Weak areas that need review
3. Flashcard review sessions
4. Spaced repetition timing`, today)
}

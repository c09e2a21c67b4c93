package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapsa-app/backend/internal/language"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/validate"
)

type ChatTurn struct {
	Role    string
	Content string // already truncated by the handler
}

type ChatRequest struct {
	CourseID  string
	SessionID string
	Message   string
	History   []ChatTurn
}

// CourseChat answers one tutor message grounded in the course materials and
// persists the assistant reply. The user's own message is assumed already
// persisted by the caller.
func (s *Service) CourseChat(ctx context.Context, userID string, req ChatRequest) (*models.ChatMessage, error) {
	course, err := s.repo.GetCourse(ctx, req.CourseID, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.GetSession(ctx, req.SessionID, userID)
	if err != nil {
		return nil, err
	}

	materials, err := s.repo.ListMaterials(ctx, req.CourseID, userID, "", maxPromptMaterials)
	if err != nil {
		return nil, err
	}

	materialContext := ""
	if len(materials) > 0 {
		var b strings.Builder
		b.WriteString("\n\nCourse Materials Available:\n")
		for i, m := range materials {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "--- %s (%s) ---\n%s", m.Title, m.Type, validate.Truncate(m.Content, 2000))
		}
		materialContext = b.String()
	}

	materialLang := language.Detect(allContent(materials), 20, 3)
	messageLang := language.Detect(req.Message, 20, 3)
	responseLang := messageLang
	if responseLang == language.English {
		responseLang = materialLang
	}

	historyText := ""
	if len(req.History) > 0 {
		var b strings.Builder
		b.WriteString("\n\nConversation History:\n")
		for _, h := range req.History {
			speaker := "Tutor"
			if h.Role == "user" {
				speaker = "Student"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, h.Content)
		}
		historyText = b.String()
	}

	courseTitle := course.Title
	if courseTitle == "" {
		courseTitle = "Unknown Course"
	}
	subtitle := ""
	if course.Subtitle != "" {
		subtitle = " - " + course.Subtitle
	}
	systemPrompt := fmt.Sprintf(`You are "The Oracle", an expert AI study tutor for the course %q%s.

Your role:
- Help students understand course concepts clearly and concisely
- Use analogies and examples to explain complex topics
- Reference specific course materials when relevant
- Be encouraging and supportive
- Keep responses focused and educational
- When referencing materials, mention them as citations

CRITICAL LANGUAGE RULE: You MUST respond in %s. The student's message is in %s and the course materials are in %s. Always match the student's language. If they write in Spanish, respond entirely in Spanish. If they write in English, respond in English. Never mix languages.%s`,
		courseTitle, subtitle, responseLang, messageLang, materialLang, materialContext)

	prompt := fmt.Sprintf("%s\n\nStudent: %s\n\nTutor:", historyText, req.Message)

	reply, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelGemma,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    1024,
	})
	if err != nil {
		return nil, err
	}

	citations := make([]string, 0, 3)
	for _, m := range materials {
		if len(citations) == 3 {
			break
		}
		citations = append(citations, m.Title)
	}

	msg := &models.ChatMessage{
		SessionID: session.ID,
		UserID:    userID,
		Role:      "assistant",
		Content:   strings.TrimSpace(reply),
		Citations: citations,
	}
	if err := s.repo.InsertChatMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "chat")
	return msg, nil
}

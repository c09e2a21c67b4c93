package study

import (
	"context"
	"fmt"

	"github.com/kapsa-app/backend/internal/language"
	"github.com/kapsa-app/backend/internal/modelout"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/validate"
)

const (
	maxCardAnswerLen   = 2000
	maxCardQuestionLen = 1000
)

type FlashcardRequest struct {
	CourseID   string
	Count      int // already clamped to 1..30 by the handler
	MaterialID string
	Topic      string
}

// GenerateFlashcards builds a deck from course material via one inference
// call. The persisted card count is the number of cards that actually
// normalized, not the requested count.
func (s *Service) GenerateFlashcards(ctx context.Context, userID string, req FlashcardRequest) (*models.FlashcardDeck, error) {
	course, err := s.repo.GetCourse(ctx, req.CourseID, userID)
	if err != nil {
		return nil, err
	}

	materials, err := s.repo.ListMaterials(ctx, req.CourseID, userID, req.MaterialID, maxPromptMaterials)
	if err != nil {
		return nil, err
	}

	materialContent := "No materials available. Generate general study flashcards for the course."
	if len(materials) > 0 {
		materialContent = materialBlock(materials, 3000)
	}
	detectedLang := language.Detect(allContent(materials), 20, 3)

	systemPrompt := flashcardSystemPrompt(course.Title, detectedLang, req.Count, req.Topic)
	prompt := fmt.Sprintf("Based on this course material, generate %d flashcards in the SAME LANGUAGE as the material:\n\n%s\n\nOutput the JSON array now:", req.Count, materialContent)

	raw, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelLlamaInstruct,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    2048,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := modelout.Array(raw)
	if err != nil {
		return nil, err
	}

	cards := make([]models.Flashcard, 0, len(parsed))
	for _, item := range parsed {
		obj := modelout.AsObject(item)
		topic := modelout.Str(obj, "topic")
		if topic == "" {
			topic = "General"
		}
		cards = append(cards, models.Flashcard{
			Topic:          validate.Truncate(topic, validate.MaxTopicLen),
			QuestionBefore: validate.Truncate(modelout.Str(obj, "question_before"), maxCardQuestionLen),
			Keyword:        validate.Truncate(modelout.Str(obj, "keyword"), validate.MaxTopicLen),
			QuestionAfter:  validate.Truncate(modelout.Str(obj, "question_after"), maxCardQuestionLen),
			Answer:         validate.Truncate(modelout.Str(obj, "answer"), maxCardAnswerLen),
			Status:         "new",
		})
	}

	title := req.Topic
	if title == "" {
		title = course.Title
	}
	if title == "" {
		title = "Study Deck"
	}
	deck := &models.FlashcardDeck{
		CourseID:  req.CourseID,
		UserID:    userID,
		Title:     validate.Truncate(title, validate.MaxTitleLen),
		CardCount: len(cards),
	}
	if err := s.repo.CreateDeck(ctx, deck, cards); err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "flashcards")
	return deck, nil
}

func flashcardSystemPrompt(courseTitle, lang string, count int, topic string) string {
	if courseTitle == "" {
		courseTitle = "Study Course"
	}
	p := fmt.Sprintf(`You are a flashcard generator for the course %q.

CRITICAL LANGUAGE RULE: The course material is in %s. You MUST generate ALL flashcard content (topic, question_before, keyword, question_after, and answer) in %s. Do NOT translate to English. Keep the same language as the source material.

Generate exactly %d flashcards in JSON format. Each flashcard must have:
- topic: The specific topic/category
- question_before: The first part of the question before the key term
- keyword: The key term/concept that should be highlighted (1-3 words)
- question_after: The rest of the question after the keyword (can be empty string)
- answer: A clear, concise answer (1-3 sentences)

The question format should read naturally: question_before + keyword + question_after forms the full question.

IMPORTANT: Output ONLY a valid JSON array. No markdown, no explanation, just the JSON array.`, courseTitle, lang, lang, count)
	if topic != "" {
		p += "\nFocus on the topic: " + topic
	}
	return p
}

package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapsa-app/backend/internal/language"
	"github.com/kapsa-app/backend/internal/modelout"
	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/validate"
)

const maxInsightLen = 500

type QuizGenerateRequest struct {
	CourseID string
	Count    int // already clamped to 1..20 by the handler
}

type QuizResult struct {
	Test      *models.Test          `json:"test"`
	Questions []models.TestQuestion `json:"questions"`
}

// GenerateQuiz creates a test with AI-generated questions. A malformed
// first response gets exactly one end-to-end retry with a stricter prompt.
func (s *Service) GenerateQuiz(ctx context.Context, userID string, req QuizGenerateRequest) (*QuizResult, error) {
	course, err := s.repo.GetCourse(ctx, req.CourseID, userID)
	if err != nil {
		return nil, err
	}

	materials, err := s.repo.ListMaterials(ctx, req.CourseID, userID, "", maxPromptMaterials)
	if err != nil {
		return nil, err
	}

	materialContent := "Generate general knowledge questions for the course."
	if len(materials) > 0 {
		materialContent = materialBlock(materials, 2000)
	}
	detectedLang := language.Detect(allContent(materials), 20, 3)

	systemPrompt := fmt.Sprintf(`You are a quiz generator for %q.

CRITICAL LANGUAGE RULE: The course material is in %s. You MUST generate ALL quiz content (questions and correct_answer) in %s. Do NOT translate to English. Keep the same language as the source material.

Generate exactly %d quiz questions in JSON format. Each question must have:
- question: The full question text (in %s)
- correct_answer: The correct answer, concise 1-2 sentences max (in %s)

Make questions that test understanding, not just memorization.
Vary difficulty: mix easy, medium, and hard questions.

IMPORTANT: Output ONLY a valid JSON array. No markdown, no explanation.`,
		course.Title, detectedLang, detectedLang, req.Count, detectedLang, detectedLang)

	prompt := fmt.Sprintf("Based on this course material, generate %d quiz questions in the SAME LANGUAGE as the material:\n\n%s\n\nOutput the JSON array now:", req.Count, materialContent)

	raw, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelLlama,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    2048,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := modelout.Array(raw)
	if err != nil {
		s.log.Warn("quiz parse failed, retrying with stricter prompt", "user_id", userID)
		retryPrompt := fmt.Sprintf("Generate exactly %d quiz questions as a JSON array. Output ONLY the JSON array starting with [ and ending with ]. No text before or after.\n\nMaterial:\n%s\n\nJSON array:",
			req.Count, validate.Truncate(materialContent, 2000))
		raw, err = s.ai.Generate(ctx, replicate.GenerateParams{
			Model:        replicate.ModelLlama,
			Prompt:       retryPrompt,
			SystemPrompt: systemPrompt,
			MaxTokens:    2048,
		})
		if err != nil {
			return nil, err
		}
		parsed, err = modelout.Array(raw)
		if err != nil {
			return nil, err
		}
	}

	questions := make([]models.TestQuestion, 0, len(parsed))
	for i, item := range parsed {
		obj := modelout.AsObject(item)
		questions = append(questions, models.TestQuestion{
			QuestionNumber: i + 1,
			Question:       validate.Truncate(modelout.Str(obj, "question"), maxCardQuestionLen),
			CorrectAnswer:  validate.Truncate(modelout.Str(obj, "correct_answer"), validate.MaxAnswerLen),
		})
	}

	title := course.Title
	if title == "" {
		title = "Quiz"
	}
	test := &models.Test{
		CourseID:   req.CourseID,
		UserID:     userID,
		Title:      validate.Truncate(title+" - Quiz", validate.MaxTitleLen),
		TotalCount: len(questions),
	}
	if err := s.repo.CreateTest(ctx, test, questions); err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "quiz_generate")
	return &QuizResult{Test: test, Questions: questions}, nil
}

type QuizAnswer struct {
	QuestionID string
	Answer     string // already truncated by the handler
}

// EvaluateQuiz grades submitted answers. Lenient AI grading runs first; if
// the call or its normalization fails, grading falls back to deterministic
// string matching and the request still succeeds.
func (s *Service) EvaluateQuiz(ctx context.Context, userID, testID string, answers []QuizAnswer) (*QuizResult, error) {
	test, err := s.repo.GetTest(ctx, testID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.ListQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}

	var questionText strings.Builder
	for _, q := range questions {
		questionText.WriteString(q.Question)
		questionText.WriteString(" ")
	}
	detectedLang := language.Detect(questionText.String(), 20, 3)

	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = validate.Truncate(a.Answer, validate.MaxAnswerLen)
	}

	graded, correctCount, aiErr := s.gradeWithAI(ctx, questions, byQuestion, detectedLang)
	if aiErr != nil {
		s.log.Warn("AI evaluation failed, falling back to string comparison", "test_id", testID, "err", aiErr)
		graded, correctCount = gradeByMatching(questions, byQuestion, detectedLang)
	}

	score := float64(correctCount) / float64(max(len(questions), 1))
	grade := calculateGrade(score)
	motivation := motivationText(detectedLang, score)

	test.Score = &score
	test.Grade = &grade
	test.CorrectCount = correctCount
	test.MotivationText = &motivation

	if err := s.repo.ApplyEvaluation(ctx, test, graded); err != nil {
		return nil, err
	}

	s.trackUsage(ctx, userID, "quiz_evaluate")
	return &QuizResult{Test: test, Questions: graded}, nil
}

// gradeWithAI asks the model to judge every answer in one batched call.
func (s *Service) gradeWithAI(ctx context.Context, questions []models.TestQuestion, byQuestion map[string]string, lang string) ([]models.TestQuestion, int, error) {
	var qa strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&qa, "Q%d: %s\nCorrect Answer: %s\nStudent Answer: %s\n\n",
			i+1, q.Question, q.CorrectAnswer, byQuestion[q.ID])
	}

	systemPrompt := fmt.Sprintf(`You are a fair and encouraging study tutor evaluating a student's quiz answers.

CRITICAL: Respond in %s.

For each question, evaluate if the student's answer demonstrates understanding of the concept, even if the wording differs from the correct answer. Be lenient — if the student shows they understand the key concept, mark it as correct.

For each question, provide:
- is_correct: true/false (true if the student demonstrates understanding)
- ai_insight: A brief 1-2 sentence insight in %s. For correct answers, praise briefly. For wrong answers, explain why it's wrong and help them remember the correct answer.

IMPORTANT: Output ONLY a valid JSON array with objects like: [{"is_correct": true, "ai_insight": "..."}]
One object per question, in order. No markdown, no explanation outside the JSON.`, lang, lang)

	prompt := fmt.Sprintf("Evaluate these %d student answers:\n\n%sOutput the JSON array now:", len(questions), qa.String())

	raw, err := s.ai.Generate(ctx, replicate.GenerateParams{
		Model:        replicate.ModelLlama,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    2048,
	})
	if err != nil {
		return nil, 0, err
	}
	evaluations, err := modelout.Array(raw)
	if err != nil {
		return nil, 0, err
	}

	graded := make([]models.TestQuestion, len(questions))
	correct := 0
	for i, q := range questions {
		var eval map[string]any
		if i < len(evaluations) {
			eval = modelout.AsObject(evaluations[i])
		} else {
			eval = map[string]any{}
		}
		isCorrect := modelout.Bool(eval, "is_correct")
		if isCorrect {
			correct++
		}
		insight := validate.Truncate(modelout.Str(eval, "ai_insight"), maxInsightLen)
		if insight == "" {
			insight = defaultInsight(lang, isCorrect)
		}
		answer := byQuestion[q.ID]

		q.UserAnswer = &answer
		q.IsCorrect = &isCorrect
		q.AIInsight = &insight
		graded[i] = q
	}
	return graded, correct, nil
}

// gradeByMatching is the deterministic fallback: case-insensitive exact
// match, or the correct answer containing the trimmed student answer.
func gradeByMatching(questions []models.TestQuestion, byQuestion map[string]string, lang string) ([]models.TestQuestion, int) {
	graded := make([]models.TestQuestion, len(questions))
	correct := 0
	for i, q := range questions {
		answer := byQuestion[q.ID]
		trimmed := strings.ToLower(strings.TrimSpace(answer))
		correctAnswer := strings.ToLower(q.CorrectAnswer)
		isCorrect := trimmed != "" &&
			(trimmed == strings.TrimSpace(correctAnswer) || strings.Contains(correctAnswer, trimmed))
		if isCorrect {
			correct++
		}
		insight := fallbackInsight(lang, isCorrect)

		q.UserAnswer = &answer
		q.IsCorrect = &isCorrect
		q.AIInsight = &insight
		graded[i] = q
	}
	return graded, correct
}

// calculateGrade maps a score to a letter grade. Thresholds are a fixed
// monotonic table; 0.97 exactly is an A+.
func calculateGrade(score float64) string {
	switch {
	case score >= 0.97:
		return "A+"
	case score >= 0.93:
		return "A"
	case score >= 0.90:
		return "A-"
	case score >= 0.87:
		return "B+"
	case score >= 0.83:
		return "B"
	case score >= 0.80:
		return "B-"
	case score >= 0.77:
		return "C+"
	case score >= 0.73:
		return "C"
	case score >= 0.70:
		return "C-"
	case score >= 0.67:
		return "D+"
	case score >= 0.60:
		return "D"
	default:
		return "F"
	}
}

func defaultInsight(lang string, correct bool) string {
	if lang == language.Spanish {
		if correct {
			return "¡Correcto! Buen trabajo."
		}
		return "Revisa este tema."
	}
	if correct {
		return "Correct! Great job."
	}
	return "Review this topic."
}

func fallbackInsight(lang string, correct bool) string {
	if lang == language.Spanish {
		if correct {
			return "¡Correcto! Buen trabajo."
		}
		return "Revisa este tema para mejorar tu comprensión."
	}
	if correct {
		return "Correct! Great job."
	}
	return "Review this topic for better understanding."
}

func motivationText(lang string, score float64) string {
	switch lang {
	case language.Spanish:
		switch {
		case score >= 0.9:
			return "¡Trabajo excepcional! Dominaste este material."
		case score >= 0.7:
			return "¡Muy bien! Enfocate en las áreas que fallaste para mejorar aún más."
		case score >= 0.5:
			return "¡Buen comienzo! Repasá los temas que fallaste e intentá de nuevo."
		default:
			return "¡Seguí estudiando! Revisá los materiales y practicá más."
		}
	case language.Portuguese:
		switch {
		case score >= 0.9:
			return "Trabalho excelente! Você dominou este material."
		case score >= 0.7:
			return "Ótimo esforço! Foque nas áreas que errou para melhorar ainda mais."
		case score >= 0.5:
			return "Bom começo! Revise os tópicos e tente novamente."
		default:
			return "Continue estudando! Revise os materiais e pratique mais."
		}
	default:
		switch {
		case score >= 0.9:
			return "Outstanding work! You've mastered this material."
		case score >= 0.7:
			return "Great effort! Focus on the areas you missed to improve even more."
		case score >= 0.5:
			return "Good start! Review the missed topics and try again."
		default:
			return "Keep studying! Review the materials and practice more."
		}
	}
}

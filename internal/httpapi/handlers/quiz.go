package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/study"
	"github.com/kapsa-app/backend/internal/validate"
)

type quizAnswerReq struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type quizReq struct {
	Action   string          `json:"action"` // generate | evaluate
	CourseID string          `json:"courseId"`
	Count    int             `json:"count"`
	TestID   string          `json:"testId"`
	Answers  []quizAnswerReq `json:"answers"`
}

func (h *Handler) Quiz(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	var req quizReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	switch req.Action {
	case "generate":
		h.generateQuiz(c, uid, req)
	case "evaluate":
		h.evaluateQuiz(c, uid, req)
	default:
		badRequest(c, "Invalid action")
	}
}

func (h *Handler) generateQuiz(c *gin.Context, uid string, req quizReq) {
	if err := validate.UUID("courseId", req.CourseID); err != nil {
		invalid(c, err)
		return
	}

	result, err := h.Svc.GenerateQuiz(c.Request.Context(), uid, study.QuizGenerateRequest{
		CourseID: req.CourseID,
		Count:    validate.ClampCount(req.Count, 5, 1, 20),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, result)
}

func (h *Handler) evaluateQuiz(c *gin.Context, uid string, req quizReq) {
	if err := validate.UUID("testId", req.TestID); err != nil {
		invalid(c, err)
		return
	}
	if len(req.Answers) == 0 {
		badRequest(c, "answers is required")
		return
	}

	answers := make([]study.QuizAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		if err := validate.UUID("questionId", a.QuestionID); err != nil {
			invalid(c, err)
			return
		}
		answers = append(answers, study.QuizAnswer{
			QuestionID: a.QuestionID,
			Answer:     validate.Truncate(a.Answer, validate.MaxAnswerLen),
		})
	}

	result, err := h.Svc.EvaluateQuiz(c.Request.Context(), uid, req.TestID, answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, result)
}

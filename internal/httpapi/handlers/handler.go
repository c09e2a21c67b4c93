package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/auth"
	"github.com/kapsa-app/backend/internal/common"
	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/modelout"
	"github.com/kapsa-app/backend/internal/replicate"
	"github.com/kapsa-app/backend/internal/study"
	"github.com/kapsa-app/backend/internal/validate"
)

type Handler struct {
	Svc *study.Service
	Log *logger.Logger
}

func NewHandler(svc *study.Service, log *logger.Logger) *Handler {
	return &Handler{Svc: svc, Log: log}
}

// userID aborts with 401 when the auth middleware did not run. Routes are
// always registered behind it, so this is a wiring guard, not a user path.
func (h *Handler) userID(c *gin.Context) (string, bool) {
	uid, ok := auth.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return uid, ok
}

// fail maps a service error to a response. Not-found stays specific so the
// client can tell a bad id from a server fault; everything else collapses
// to a generic message with the detail only in the log.
func (h *Handler) fail(c *gin.Context, err error) {
	var nf *study.NotFoundError
	if errors.As(err, &nf) || errors.Is(err, study.ErrNotFound) {
		msg := "Resource not found"
		if nf != nil {
			msg = nf.Error()
		}
		common.Fail(c, http.StatusNotFound, msg)
		return
	}

	h.Log.Error("request failed",
		"path", c.Request.URL.Path,
		"user_id", c.GetString(auth.UserIDKey),
		"err", err)

	switch {
	case errors.Is(err, replicate.ErrServiceUnavailable),
		errors.Is(err, replicate.ErrTimeout),
		errors.Is(err, replicate.ErrFailed):
		common.Fail(c, http.StatusInternalServerError, "AI service unavailable. Please try again later.")
	case errors.Is(err, modelout.ErrMalformed):
		common.Fail(c, http.StatusInternalServerError, "The AI returned an unexpected response. Please try again.")
	default:
		common.Fail(c, http.StatusInternalServerError, common.InternalMsg)
	}
}

func badRequest(c *gin.Context, msg string) {
	common.Fail(c, http.StatusBadRequest, msg)
}

func invalid(c *gin.Context, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		badRequest(c, ve.Error())
		return
	}
	badRequest(c, "Invalid request")
}

// historyTurns converts wire history entries into service turns, truncating
// each entry and dropping empties.
func historyTurns(in []wireTurn) []study.ChatTurn {
	out := make([]study.ChatTurn, 0, len(in))
	for _, t := range in {
		content := validate.Truncate(t.Content, validate.MaxHistoryLen)
		if content == "" {
			continue
		}
		role := t.Role
		if role != "user" {
			role = "assistant"
		}
		out = append(out, study.ChatTurn{Role: role, Content: content})
	}
	return out
}

type wireTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

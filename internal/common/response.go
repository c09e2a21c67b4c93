package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes the payload as-is. The handlers return raw domain objects
// (decks, tests, messages), not a wrapper envelope.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Fail writes {"error": msg}. msg must be user-safe; internal detail
// belongs in the log, never here.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// InternalMsg is the generic message for unanticipated failures.
const InternalMsg = "An internal error occurred. Please try again."

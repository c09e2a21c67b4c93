package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/kapsa-app/backend/internal/common"
)

func (h *Handler) DeleteAccount(c *gin.Context) {
	uid, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.Svc.EraseAccount(c.Request.Context(), uid); err != nil {
		h.fail(c, err)
		return
	}

	common.OK(c, gin.H{"deleted": true})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
)

const MessageFailure = "Something went wrong, please try again."

// respondError writes the HTTP form of a classified error. Store failures
// are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var ib *ledger.InsufficientBalanceError
	if errors.As(err, &ib) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Insufficient balance.",
			"requested": ib.Requested,
			"available": ib.Available,
		})
		return
	}
	message := err.Error()
	var e *ledger.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	switch ledger.KindOf(err) {
	case ledger.KindInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
	case ledger.KindNotAuthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	case ledger.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": message})
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("user", c.GetString("user_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": MessageFailure})
	}
}

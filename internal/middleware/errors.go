package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/logger"
	"go.uber.org/zap"
)

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch database.KindOf(err) {
	case database.KindValidation, database.KindBusinessRule:
		return http.StatusBadRequest
	case database.KindNotFound:
		return http.StatusNotFound
	case database.KindForbidden:
		return http.StatusForbidden
	case database.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the {"error", "code"} body for err. Internal errors
// are logged and replaced by a generic message.
func AbortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error", "code": "INTERNAL"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": database.CodeOf(err)})
}

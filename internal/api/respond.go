package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajaykumarbhatane/dental-management/internal/apperr"
)

// respondError translates the error taxonomy into one consistent HTTP
// shape. Typed errors carry their own status and message; anything else
// is logged and surfaced as an opaque 500 so internals never leak.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		// Integrity failures are typed but still internal: log them,
		// return the generic message.
		if appErr.Kind == apperr.KindIntegrity {
			logger.Error("integrity failure", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
			return
		}
		c.JSON(apperr.HTTPStatus(appErr), body)
		return
	}

	logger.Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// pathUUID parses a :param as a UUID. A malformed ID responds 400 and
// returns false.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

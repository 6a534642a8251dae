package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/flotilla-io/flotilla/internal/apperr"
)

// respondError maps a service error to status + JSON body. Internal causes
// are logged, never serialized.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	message := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) && kind != apperr.KindInternal {
		message = ae.Message
	}

	if kind == apperr.KindInternal {
		slog.Error("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
	}

	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": message})
}

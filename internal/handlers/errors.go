package handlers

import (
	"errors"
	"net/http"

	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/script"
	"controlling_fluidics/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusOpened   = "opened"
	statusClosed   = "closed"
	statusReset    = "reset"
	statusLoaded   = "loaded"
	statusSignaled = "signaled"
	statusUnloaded = "unloaded"
	statusSaved    = "saved"
	statusDeleted  = "deleted"

	errInternal        = "internal error"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps service errors to status codes. Client errors echo the
// error text; anything else is logged and hidden behind a generic message.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var syntaxErr *script.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": syntaxErr.Error(),
			"line":  syntaxErr.Line,
			"token": syntaxErr.Token,
		})
	case errors.Is(err, script.ErrEmptyScript), errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownValve), errors.Is(err, service.ErrScriptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSessionActive), errors.Is(err, service.ErrNoSession),
		errors.Is(err, repository.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
		return
	}
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Infow(logKey, fields...)
	}
}

// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridemap/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts vehicle ids made of letters, digits, '-' and '_', at most 32 chars.
func isValidID(v string) bool {
	if v == "" || len(v) > 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrClosed), errors.Is(err, session.ErrNoMirror):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, session.ErrNoRiderPosition):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

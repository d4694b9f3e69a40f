package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/collisionlab/internal/admin"
	"github.com/playmatatu/collisionlab/internal/lab"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lab.ErrLabNotFound), errors.Is(err, lab.ErrUnknownPreset), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, lab.ErrInvalidBallIndex), errors.Is(err, lab.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, lab.ErrRewindInelastic), errors.Is(err, admin.ErrBuiltinPreset):
		return http.StatusConflict
	case errors.Is(err, lab.ErrTooManyLabs):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Unexpected errors are logged
// and reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// lookupLab resolves the :token path parameter, writing a 404 when it is unknown.
func lookupLab(c *gin.Context, m *lab.LabManager) (*lab.Lab, bool) {
	l, err := m.GetLab(c.Param("token"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	m.Touch(l.Token)
	return l, true
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ball index must be an integer"})
		return 0, false
	}
	return index, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/collisionlab/internal/admin"
)

// ListPresets returns the built-in presets followed by the stored ones.
func ListPresets(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		presets, err := admin.AllPresets(db)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"presets": presets})
	}
}

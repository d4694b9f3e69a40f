package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/collisionlab/internal/admin"
	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/playmatatu/collisionlab/internal/middleware"
)

// AdminLogin exchanges a username and token for a signed session JWT.
func AdminLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		username := strings.TrimSpace(req.Username)
		acc, err := admin.ValidateAdminCredentials(db, username, strings.TrimSpace(req.Token))
		if err != nil {
			log.Printf("[ADMIN] Login failed for username %s: %v", username, err)
			admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": username}, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		signed, exp, err := middleware.IssueAdminToken(cfg, acc, time.Now())
		if err != nil {
			log.Printf("[ADMIN] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": username}, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      signed,
			"expires_at": exp.Format(time.RFC3339),
			"admin":      acc,
		})
	}
}

// CreatePreset stores a new preset or replaces a stored one of the same name.
func CreatePreset(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.ContextAdminUsername)

		var p lab.Preset
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		p.Name = strings.TrimSpace(p.Name)
		p.Builtin = false

		details := map[string]interface{}{"name": p.Name, "ball_count": p.BallCount}
		if err := admin.SavePreset(db, p, username); err != nil {
			admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "save_preset", details, false)
			respondError(c, err)
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "save_preset", details, true)
		log.Printf("[ADMIN] %s saved preset %s", username, p.Name)
		c.JSON(http.StatusCreated, p)
	}
}

// DeletePreset removes a stored preset.
func DeletePreset(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(middleware.ContextAdminUsername)
		name := c.Param("name")

		details := map[string]interface{}{"name": name}
		if err := admin.DeletePreset(db, name); err != nil {
			admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "delete_preset", details, false)
			respondError(c, err)
			return
		}

		admin.LogAdminAction(db, username, c.ClientIP(), c.FullPath(), "delete_preset", details, true)
		log.Printf("[ADMIN] %s deleted preset %s", username, name)
		c.Status(http.StatusNoContent)
	}
}

// ListAuditLogs returns recent admin actions, newest first.
func ListAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		logs, err := admin.GetAdminAuditLogs(db, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}

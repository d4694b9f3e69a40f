package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/collisionlab/internal/admin"
	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/playmatatu/collisionlab/internal/lab"
)

// CreateLabRequest picks a preset and optionally overrides its settings.
type CreateLabRequest struct {
	Preset           string   `json:"preset"`
	BallCount        *int     `json:"ball_count"`
	Elasticity       *float64 `json:"elasticity"`
	ReflectingBorder *bool    `json:"reflecting_border"`
	ConstantSize     *bool    `json:"constant_size"`
}

// CreateLab starts a lab from a built-in or stored preset.
func CreateLab(db *sqlx.DB, m *lab.LabManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLabRequest
		// An empty body means the default preset.
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}

		var p lab.Preset
		if req.Preset == "" || req.Preset == lab.DefaultPreset().Name {
			p = lab.DefaultPreset()
			p.Elasticity = cfg.DefaultElasticity
		} else {
			var err error
			if p, err = admin.LookupPreset(db, req.Preset); err != nil {
				respondError(c, err)
				return
			}
		}
		if req.BallCount != nil {
			p.BallCount = *req.BallCount
		}
		if req.Elasticity != nil {
			p.Elasticity = *req.Elasticity
		}
		if req.ReflectingBorder != nil {
			p.ReflectingBorder = *req.ReflectingBorder
		}
		if req.ConstantSize != nil {
			p.ConstantSize = *req.ConstantSize
		}

		l, err := m.CreateLab(p)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("X-Lab-Token", l.Token)
		c.JSON(http.StatusCreated, gin.H{"id": l.ID, "token": l.Token, "state": l.Snapshot()})
	}
}

// GetLabState returns a lab's current snapshot.
func GetLabState(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := lookupLab(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, l.Snapshot())
	}
}

// DeleteLab closes a lab and disconnects its viewers.
func DeleteLab(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.RemoveLab(c.Param("token"), "closed by owner"); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// LabAction wraps a lab operation that takes no input.
func LabAction(m *lab.LabManager, action func(l *lab.Lab)) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := lookupLab(c, m)
		if !ok {
			return
		}
		action(l)
		c.JSON(http.StatusOK, l.Snapshot())
	}
}

// StepLab runs one manual step forward or backward.
func StepLab(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := lookupLab(c, m)
		if !ok {
			return
		}
		var req lab.StepRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}
		if err := l.ApplyStep(req); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, l.Snapshot())
	}
}

// UpdateSettings applies a partial settings change.
func UpdateSettings(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := lookupLab(c, m)
		if !ok {
			return
		}
		var u lab.SettingsUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := l.ApplySettings(u); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, l.Snapshot())
	}
}

// UpdateBall edits the position, velocity or mass of one ball.
func UpdateBall(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, ok := lookupLab(c, m)
		if !ok {
			return
		}
		index, ok := parseIndex(c)
		if !ok {
			return
		}
		var u lab.BallUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := l.UpdateBall(index, u); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, l.Snapshot())
	}
}

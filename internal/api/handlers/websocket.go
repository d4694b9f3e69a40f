package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/playmatatu/collisionlab/internal/ws"
)

// HandleLabWebSocket streams a lab's state to a viewer and accepts its commands.
func HandleLabWebSocket(m *lab.LabManager) gin.HandlerFunc {
	return ws.HandleWebSocket(m)
}

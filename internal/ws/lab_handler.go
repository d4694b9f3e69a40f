package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/collisionlab/internal/lab"
)

// LabHub is the single hub for all labs.
var LabHub *Hub

func init() {
	LabHub = NewHub()
	go LabHub.Run()
}

// MoveBallData is the payload of a move_ball command.
type MoveBallData struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// SetVelocityData is the payload of a set_velocity command.
type SetVelocityData struct {
	Index int     `json:"index"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
}

// SetMassData is the payload of a set_mass command.
type SetMassData struct {
	Index int     `json:"index"`
	Mass  float64 `json:"mass"`
}

// HandleWebSocket upgrades a viewer of the lab named by the :token path
// parameter. The viewer receives the current state right away and every
// change after that.
func HandleWebSocket(m *lab.LabManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		l, err := m.GetLab(token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "lab not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:      LabHub,
			conn:     conn,
			labToken: token,
			send:     make(chan []byte, sendBufferSize),
		}
		if data, err := json.Marshal(stateMessage(l)); err == nil {
			client.send <- data
		}
		LabHub.register <- client
		m.Touch(token)

		go client.writePump()
		go client.readPump(m)
	}
}

func stateMessage(l *lab.Lab) lab.Event {
	s := l.Snapshot()
	return lab.Event{Type: lab.EventLabState, Token: l.Token, State: &s}
}

// readPump reads viewer commands until the connection closes.
func (c *Client) readPump(m *lab.LabManager) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for lab %s: %v", c.labToken, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		l, err := m.GetLab(c.labToken)
		if err != nil {
			c.sendError("Lab not found")
			return
		}
		m.Touch(c.labToken)
		if err := c.handleMessage(l, msg); err != nil {
			c.sendError(err.Error())
		}
	}
}

// handleMessage runs one viewer command. State changes reach every viewer
// through the lab's event stream, so only get_state answers directly.
func (c *Client) handleMessage(l *lab.Lab, msg WSMessage) error {
	switch msg.Type {
	case "play":
		l.Play()

	case "pause":
		l.Pause()

	case "reset":
		l.Reset()

	case "step":
		var req lab.StepRequest
		if err := decodeData(msg.Data, &req); err != nil {
			return err
		}
		return l.ApplyStep(req)

	case "move_ball":
		var data MoveBallData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		return l.UpdateBall(data.Index, lab.BallUpdate{X: &data.X, Y: &data.Y})

	case "set_velocity":
		var data SetVelocityData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		return l.UpdateBall(data.Index, lab.BallUpdate{VX: &data.VX, VY: &data.VY})

	case "set_mass":
		var data SetMassData
		if err := decodeData(msg.Data, &data); err != nil {
			return err
		}
		return l.SetBallMass(data.Index, data.Mass)

	case "settings":
		var u lab.SettingsUpdate
		if err := decodeData(msg.Data, &u); err != nil {
			return err
		}
		return l.ApplySettings(u)

	case "get_state":
		c.sendJSON(stateMessage(l))

	default:
		return errors.New("unknown message type")
	}
	return nil
}

var errInvalidData = errors.New("invalid command data")

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidData
	}
	return nil
}

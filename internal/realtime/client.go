package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moltspaces/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// LedgerSubscriptions are the ledger-side push feeds a client can attach to.
type LedgerSubscriptions interface {
	SubscribeHostSpace(hostSlug string, onChange func(*models.LiveSpace)) (cancel func())
	SubscribeLiveDirectory(onChange func([]models.LiveSpace)) (cancel func())
}

// RosterSubscriptions is the roster-side push feed.
type RosterSubscriptions interface {
	SubscribeSessionParticipants(sessionID *uuid.UUID, onChange func([]models.Participant)) (cancel func())
}

// PresenceHooks let the socket lifecycle drive participant liveness: pongs
// refresh the heartbeat, disconnect marks the participant as left.
type PresenceHooks interface {
	Heartbeat(ctx context.Context, id uuid.UUID) error
	Leave(ctx context.Context, id uuid.UUID)
}

// Client represents a single WebSocket viewer connection.
type Client struct {
	ID            string
	UserFid       string
	participantID *uuid.UUID
	conn          *websocket.Conn
	send          chan WSMessage
	cancels       []func()
	presence      PresenceHooks
	logger        *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
//
// Query params select feeds: host=<slug> for one space's ledger,
// session=<uuid> for a session's roster, neither for the live directory.
// participant_id ties the connection to a roster record so its teardown
// marks the participant as left.
func ServeWs(logger *zap.Logger, jwtValidate func(token string) (fid, username string, err error), ledger LedgerSubscriptions, roster RosterSubscriptions, presence PresenceHooks) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		fid, _, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		hostSlug := c.Query("host")
		var sessionID *uuid.UUID
		if raw := c.Query("session"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
				return
			}
			sessionID = &id
		}
		var participantID *uuid.UUID
		if raw := c.Query("participant_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
				return
			}
			participantID = &id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:            uuid.New().String(),
			UserFid:       fid,
			participantID: participantID,
			conn:          conn,
			send:          make(chan WSMessage, 256),
			presence:      presence,
			logger:        logger,
		}

		switch {
		case hostSlug != "":
			client.cancels = append(client.cancels,
				ledger.SubscribeHostSpace(hostSlug, func(space *models.LiveSpace) {
					client.push("host_space", space)
				}))
		case sessionID == nil:
			client.cancels = append(client.cancels,
				ledger.SubscribeLiveDirectory(func(list []models.LiveSpace) {
					client.push("directory", list)
				}))
		}
		if sessionID != nil {
			client.cancels = append(client.cancels,
				roster.SubscribeSessionParticipants(sessionID, func(list []models.Participant) {
					client.push("participants", list)
				}))
		}

		go client.writePump()
		client.readPump()
	}
}

// push marshals payload and enqueues it, dropping the message when the
// client's buffer is full (a slow viewer never blocks the fan-out path).
func (c *Client) push(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		for _, cancel := range c.cancels {
			cancel()
		}
		if c.participantID != nil {
			ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
			c.presence.Leave(ctx, *c.participantID)
			cancelCtx()
		}
		// send stays open: a racing fan-out delivery may still push after
		// cancel returns. writePump exits via the closed connection.
		_ = c.conn.Close()
	}()

	heartbeat := func() {
		if c.participantID == nil {
			return
		}
		ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelCtx()
		if err := c.presence.Heartbeat(ctx, *c.participantID); err != nil {
			c.logger.Debug("ws heartbeat failed", zap.String("participant_id", c.participantID.String()), zap.Error(err))
		}
	}

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		heartbeat()
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "heartbeat":
			heartbeat()
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

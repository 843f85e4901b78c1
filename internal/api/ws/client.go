package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Inbound and outbound control message types
const (
	TypeSubscribe             = "subscribe_risk_alerts"
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypeError                 = "error"

	msgSubscribed     = "Subscribed to risk alerts"
	msgUnknownType    = "Unknown message type"
	msgInvalidMessage = "Invalid message format"
)

// ControlMessage is exchanged with subscribers outside of alert delivery
type ControlMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Client is one subscriber connection
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	ready atomic.Bool
}

// enqueue never blocks. Callers hold the hub read lock, so send is open.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debugw("Subscriber read failed", "client_id", c.id, "error", err)
			}
			return
		}
		c.reply(handleControl(data))
	}
}

// handleControl answers one inbound subscriber message
func handleControl(data []byte) ControlMessage {
	var in ControlMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return ControlMessage{Type: TypeError, Message: msgInvalidMessage}
	}
	switch in.Type {
	case TypeSubscribe:
		return ControlMessage{Type: TypeSubscriptionConfirmed, Message: msgSubscribed}
	default:
		return ControlMessage{Type: TypeError, Message: msgUnknownType}
	}
}

func (c *Client) reply(msg ControlMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; ok {
		c.enqueue(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package rpc

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vsariola/looper"
	"github.com/vsariola/looper/version"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

type (
	// wsMessage is sent to websocket clients: either a state snapshot or
	// the error for a rejected command.
	wsMessage struct {
		Session string        `json:"session"`
		State   *looper.State `json:"state,omitempty"`
		Error   string        `json:"error,omitempty"`
	}

	wsClient struct {
		id   uuid.UUID
		conn *websocket.Conn
		send chan wsMessage
	}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, http.Header{"Server": {version.UserAgent("looper")}})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &wsClient{id: uuid.New(), conn: conn, send: make(chan wsMessage, 64)}
	s.mu.Lock()
	s.clients[c.id] = c
	c.send <- wsMessage{Session: c.id.String(), State: s.state}
	s.mu.Unlock()
	s.logger.Info("websocket client connected", "session", c.id.String(), "remote", r.RemoteAddr)
	go c.writePump()
	s.readPump(c)
}

// readPump decodes commands from the client until the connection closes.
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[c.id]; ok {
			delete(s.clients, c.id)
			close(c.send)
		}
		s.mu.Unlock()
		c.conn.Close()
		s.logger.Info("websocket client disconnected", "session", c.id.String())
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg CommandMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				s.logger.Debug("websocket read failed", "session", c.id.String(), "err", err)
			}
			return
		}
		if err := s.send(msg); err != nil {
			s.mu.Lock()
			if _, ok := s.clients[c.id]; ok {
				select {
				case c.send <- wsMessage{Session: c.id.String(), Error: err.Error()}:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}

// writePump is the only goroutine writing to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

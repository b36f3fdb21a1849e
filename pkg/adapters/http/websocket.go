package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// serveWebSocket handles GET /sessions/{id}/ws.
//
// The server first sends the full state as a diff, then every diff the
// session produces, whichever client caused it. Each client message is a
// Command object; rejected messages are answered with {"error": "..."}.
// Frames larger than maxBodySize close the connection.
// The session is created if it does not exist.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ch, cancel, state, err := s.subscribe(r.Context(), sessionID, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer cancel()

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket", "session_id", sessionID, "err", err)
		return
	}
	raw.SetReadLimit(maxBodySize)
	conn := &wsConn{conn: raw}
	defer raw.Close()

	if err := conn.writeJSON(domain.Diff(nil, state)); err != nil {
		s.logger.Warn("websocket: initial write failed", "session_id", sessionID, "err", err)
		return
	}
	s.logger.Info("websocket: connected", "session_id", sessionID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			if err := conn.writeText(msg); err != nil {
				s.logger.Warn("websocket: write failed", "session_id", sessionID, "err", err)
				return
			}
		}
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket: read failed", "session_id", sessionID, "err", err)
			}
			break
		}
		cmd, err := s.decodeCommand(data)
		if err == nil {
			_, err = s.apply(r.Context(), sessionID, []domain.Command{cmd})
		}
		if err != nil {
			s.logger.Warn("websocket: command rejected", "session_id", sessionID, "err", err)
			if werr := conn.writeJSON(map[string]string{"error": err.Error()}); werr != nil {
				break
			}
		}
	}

	cancel()
	<-done
	s.logger.Info("websocket: disconnected", "session_id", sessionID)
}

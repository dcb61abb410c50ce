// README: WebSocket stream of session events for the map renderer.
package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridemap/internal/session"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type StreamHandler struct {
	session *session.Session
}

func NewStreamHandler(s *session.Session) *StreamHandler {
	return &StreamHandler{session: s}
}

// Serve upgrades the connection, sends the current fleet and then forwards
// every session event until either side goes away.
func (h *StreamHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go readPump(conn, closed)

	snapshot := session.Event{Type: session.EventFleet, Data: h.session.Markers()}
	if err := writeEvent(conn, snapshot); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeEvent(conn, e); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, e session.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

// readPump discards client messages and keeps the pong deadline fresh.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

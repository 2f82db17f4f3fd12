package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/realm"
)

const (
	maxStreams   = 8
	streamBuffer = 64
	catchUp      = 50
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) streamCount() int {
	return int(atomic.LoadInt32(&s.streams))
}

// handleStream pushes simulation events to a websocket client as JSON, starting with
// the most recent ones. ?realm=<id> narrows the stream to one realm.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	filter := realm.None
	if v := r.URL.Query().Get("realm"); v != "" {
		id, err := realm.ParseID(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid realm id")
			return
		}
		filter = id
	}
	match := func(e engine.Event) bool {
		return filter == realm.None || e.Actor == filter || e.Target == filter
	}

	if atomic.AddInt32(&s.streams, 1) > maxStreams {
		atomic.AddInt32(&s.streams, -1)
		writeError(w, http.StatusServiceUnavailable, "too many streams")
		return
	}
	defer atomic.AddInt32(&s.streams, -1)

	// Subscribe before the handshake so nothing published after it is missed.
	send := make(chan engine.Event, streamBuffer)
	unsubscribe := s.Sim.Bus.Subscribe(func(e engine.Event) {
		if !match(e) {
			return
		}
		select {
		case send <- e:
		default:
			slog.Warn("stream client too slow, dropping event", "event", e.ID)
		}
	})
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "remote", r.RemoteAddr, "realm", filter)

	sent := make(map[string]bool, catchUp)
	for _, e := range s.Sim.Events(catchUp) {
		if !match(e) {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
		sent[e.ID] = true
	}

	// The read loop only exists to notice closes and answer pings.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case e := <-send:
			if sent[e.ID] {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				slog.Info("stream client gone", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stamns/modelwatch/internal/scheduler"
	"github.com/stamns/modelwatch/internal/stats"
)

const (
	livePushInterval = 5 * time.Second
	liveWriteTimeout = 5 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

// liveSnapshot is what the dashboard renders between full page loads: the
// per-target status table plus round and summary state.
type liveSnapshot struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Round       scheduler.RoundState `json:"round"`
	Summary     stats.Summary        `json:"summary"`
	Targets     []targetView         `json:"targets"`
}

func (s *Server) buildLiveSnapshot() liveSnapshot {
	return liveSnapshot{
		GeneratedAt: time.Now().UTC(),
		Round:       s.Sched.State(),
		Summary:     stats.Summarize(s.Book),
		Targets:     s.targetViews(),
	}
}

// handleLive upgrades to a websocket and pushes status snapshots until the
// client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Logger.Debug("live_client_connected", zap.String("remote", conn.RemoteAddr().String()))
	s.serveLive(conn)
}

func (s *Server) serveLive(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeLivePayload(conn, s.buildLiveSnapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(livePushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeLivePayload(conn, s.buildLiveSnapshot()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeLivePayload(conn *websocket.Conn, payload liveSnapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(payload)
}

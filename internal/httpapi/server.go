package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/stamns/modelwatch/internal/domain"
	"github.com/stamns/modelwatch/internal/history"
	"github.com/stamns/modelwatch/internal/httpapi/middleware"
	"github.com/stamns/modelwatch/internal/scheduler"
	"github.com/stamns/modelwatch/internal/stats"
)

// TargetSource is the configuration-management side of the API: the current
// target snapshot plus the reload hook for "configuration changed".
type TargetSource interface {
	Targets() []domain.Target
	Reload() error
}

type Server struct {
	Logger *zap.Logger
	Book   *history.Book
	Sched  *scheduler.Scheduler
	Source TargetSource

	Keys        middleware.Keys
	PublicRPM   int
	PublicBurst int
}

func NewServer(l *zap.Logger, book *history.Book, sched *scheduler.Scheduler, src TargetSource) *Server {
	return &Server{Logger: l, Book: book, Sched: sched, Source: src}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RateLimit(s.PublicRPM, s.PublicBurst))
		api.Use(middleware.RequireAny(s.Keys))

		api.Get("/targets", s.handleListTargets)
		api.Get("/targets/{provider}/{model}/history", s.handleTargetHistory)
		api.Get("/summary", s.handleSummary)
		api.Get("/round", s.handleRoundState)
		api.Get("/live", s.handleLive)

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(s.Keys))
			admin.Post("/round", s.handleStartRound)
			admin.Post("/chatcheck", s.handleChatCheck)
			admin.Post("/reload", s.handleReload)
		})
	})

	return r
}

// targetView is one row of the status table: the target, its latest result,
// and the availability over the bounded history. History itself is served by
// the per-target endpoint to keep the list payload small.
type targetView struct {
	TargetID     string              `json:"target_id"`
	Target       domain.Target       `json:"target"`
	Latest       *domain.ProbeResult `json:"latest"`
	Availability *float64            `json:"availability"`
	Samples      int                 `json:"samples"`
}

func (s *Server) targetViews() []targetView {
	targets := s.Source.Targets()
	out := make([]targetView, 0, len(targets))
	for _, t := range targets {
		id := t.ID()
		view := targetView{TargetID: id, Target: t}
		hist := s.Book.Snapshot(id)
		view.Availability = stats.Availability(hist)
		view.Samples = len(hist)
		if latest, ok := s.Book.Latest(id); ok {
			view.Latest = &latest
		}
		out = append(out, view)
	}
	return out
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.targetViews())
}

func (s *Server) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "provider") + "/" + chi.URLParam(r, "model")
	hist := s.Book.Snapshot(id)
	if hist == nil {
		http.Error(w, "unknown target", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_id":    id,
		"availability": stats.Availability(hist),
		"history":      hist,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": stats.Summarize(s.Book),
		"round":   s.Sched.State(),
	})
}

func (s *Server) handleRoundState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sched.State())
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	started := s.Sched.StartRound(context.WithoutCancel(r.Context()))
	code := http.StatusAccepted
	if !started {
		code = http.StatusConflict
	}
	s.Logger.Info("manual_round_requested", zap.Bool("started", started))
	writeJSON(w, code, map[string]any{
		"started": started,
		"round":   s.Sched.State(),
	})
}

type chatCheckPayload struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleChatCheck(w http.ResponseWriter, r *http.Request) {
	var p chatCheckPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Enabled == nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	s.Sched.SetChatCheck(*p.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"chat_check": *p.Enabled})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Source.Reload(); err != nil {
		s.Logger.Warn("reload_failed", zap.Error(err))
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": len(s.Source.Targets())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

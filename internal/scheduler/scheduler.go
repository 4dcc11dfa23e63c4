package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stamns/modelwatch/internal/domain"
	"github.com/stamns/modelwatch/internal/history"
	"github.com/stamns/modelwatch/internal/probe"
)

// TargetSource supplies the current target list. The returned slice is a
// snapshot; a round keeps working against the snapshot it started with even
// if configuration changes mid-round.
type TargetSource interface {
	Targets() []domain.Target
}

// Config carries the scheduler tunables. Zero values fall back to the
// reference defaults.
type Config struct {
	PollInterval      time.Duration // 0 disables the periodic tick
	ProbeTimeout      time.Duration // per-target watchdog timeout
	RoundCeiling      time.Duration // absolute fail-safe per round
	WatchdogTick      time.Duration // straggler sweep interval
	Workers           int           // bounded worker pool size
	ChatCheck         bool          // initial synthetic-check toggle
	DegradedThreshold time.Duration
}

func (c *Config) applyDefaults() {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 15 * time.Second
	}
	if c.RoundCeiling <= 0 {
		c.RoundCeiling = 60 * time.Second
	}
	if c.WatchdogTick <= 0 {
		c.WatchdogTick = time.Second
	}
	if c.Workers < 1 {
		c.Workers = 6
	}
	if c.DegradedThreshold <= 0 {
		c.DegradedThreshold = probe.DefaultDegradedThreshold
	}
}

// RoundState is the presentation-layer view of the scheduler.
type RoundState struct {
	Running   bool       `json:"running"`
	State     string     `json:"state"`
	InFlight  int        `json:"in_flight"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	LastRound *time.Time `json:"last_round,omitempty"`
	ChatCheck bool       `json:"chat_check"`
}

// Scheduler runs probe rounds: at most one round at a time, each round
// fanning every target out to a bounded worker pool and funnelling results
// back through a single consumer that owns round state and the history book.
type Scheduler struct {
	logger  *zap.Logger
	source  TargetSource
	book    *history.Book
	checker probe.Checker
	cfg     Config

	mu        sync.Mutex
	running   bool
	total     int
	inflight  map[string]time.Time // targetID -> dispatch time
	startedAt time.Time
	lastRound time.Time
	chatCheck bool
}

func New(logger *zap.Logger, source TargetSource, book *history.Book, checker probe.Checker, cfg Config) *Scheduler {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:    logger,
		source:    source,
		book:      book,
		checker:   checker,
		cfg:       cfg,
		chatCheck: cfg.ChatCheck,
	}
}

// Run drives rounds off the periodic tick until ctx is cancelled. It does an
// immediate pass, then one per interval.
func (s *Scheduler) Run(ctx context.Context) {
	if s.cfg.PollInterval == 0 {
		s.logger.Info("scheduler_disabled")
		return
	}
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()

	s.StartRound(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler_stopped")
			return
		case <-t.C:
			s.StartRound(ctx)
		}
	}
}

// StartRound begins a probe round unless one is already in progress, in
// which case it is a no-op. The periodic tick and manual triggers both come
// through here. It reports whether a round was started.
func (s *Scheduler) StartRound(ctx context.Context) bool {
	targets := s.source.Targets()

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("round_skipped", zap.String("reason", "in progress"))
		return false
	}
	if len(targets) == 0 {
		// nothing to do; the round completes immediately
		s.lastRound = time.Now().UTC()
		s.mu.Unlock()
		s.logger.Debug("round_skipped", zap.String("reason", "no targets"))
		return false
	}
	s.running = true
	s.total = len(targets)
	s.startedAt = time.Now().UTC()
	s.inflight = make(map[string]time.Time, len(targets))
	opts := probe.Options{ChatCheck: s.chatCheck, DegradedThreshold: s.cfg.DegradedThreshold}
	s.mu.Unlock()

	go s.runRound(ctx, targets, opts)
	return true
}

// SetChatCheck toggles the synthetic authenticated check. A round already in
// flight keeps the setting it was started with.
func (s *Scheduler) SetChatCheck(enabled bool) {
	s.mu.Lock()
	s.chatCheck = enabled
	s.mu.Unlock()
	s.logger.Info("chat_check_toggled", zap.Bool("enabled", enabled))
}

func (s *Scheduler) ChatCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatCheck
}

func (s *Scheduler) RoundRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) State() RoundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := RoundState{
		Running:   s.running,
		State:     "idle",
		InFlight:  len(s.inflight),
		ChatCheck: s.chatCheck,
	}
	if s.running {
		started := s.startedAt
		st.StartedAt = &started
		st.State = fmt.Sprintf("probing %d of %d targets", len(s.inflight), s.total)
	}
	if !s.lastRound.IsZero() {
		last := s.lastRound
		st.LastRound = &last
	}
	return st
}

// runRound is the single consumer of completions for one round. It alone
// mutates round state and appends to the history book.
func (s *Scheduler) runRound(ctx context.Context, targets []domain.Target, opts probe.Options) {
	s.logger.Info("round_started",
		zap.Int("targets", len(targets)),
		zap.Bool("chat_check", opts.ChatCheck),
	)

	// Buffered to the round size so no worker ever blocks on delivery,
	// even after the consumer has moved on.
	results := make(chan domain.ProbeResult, len(targets))
	sem := make(chan struct{}, s.cfg.Workers)

	for _, tgt := range targets {
		t := tgt
		s.mu.Lock()
		s.inflight[t.ID()] = time.Now().UTC()
		s.mu.Unlock()

		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			cctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
			defer cancel()
			results <- s.check(cctx, t, opts)
		}()
	}

	watchdog := time.NewTicker(s.cfg.WatchdogTick)
	defer watchdog.Stop()
	ceiling := time.NewTimer(s.cfg.RoundCeiling)
	defer ceiling.Stop()

	for {
		select {
		case res := <-results:
			if !s.settle(res.TargetID) {
				// already timed out by the watchdog this round
				s.logger.Debug("late_result_discarded", zap.String("target_id", res.TargetID))
				break
			}
			s.book.Append(res)
			s.logger.Debug("probe_done",
				zap.String("target_id", res.TargetID),
				zap.String("status", string(res.Status)),
				zap.String("message", res.Message),
			)
		case <-watchdog.C:
			for _, res := range s.expire() {
				s.book.Append(res)
				s.logger.Warn("probe_timeout", zap.String("target_id", res.TargetID))
			}
		case <-ceiling.C:
			if n := s.abandon(); n > 0 {
				s.logger.Warn("round_ceiling_hit", zap.Int("abandoned", n))
			}
			s.finish()
			return
		case <-ctx.Done():
			s.abandon()
			s.finish()
			return
		}

		if s.roundDone() {
			s.finish()
			return
		}
	}
}

// check shields the round from a misbehaving checker: a panic becomes a
// regular error result.
func (s *Scheduler) check(ctx context.Context, t domain.Target, opts probe.Options) (res domain.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.ProbeResult{
				TargetID:  t.ID(),
				Status:    domain.StatusError,
				Message:   fmt.Sprintf("probe panic: %v", r),
				CheckedAt: time.Now().UTC(),
			}
		}
	}()
	return s.checker.Check(ctx, t, opts)
}

// settle removes the target from round state, reporting false if it was
// already gone (timed out earlier; the result must be discarded).
func (s *Scheduler) settle(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[targetID]; !ok {
		return false
	}
	delete(s.inflight, targetID)
	return true
}

// expire sweeps round state for targets dispatched longer ago than the
// per-target timeout and synthesizes their error results.
func (s *Scheduler) expire() []domain.ProbeResult {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ProbeResult
	for id, dispatched := range s.inflight {
		if now.Sub(dispatched) < s.cfg.ProbeTimeout {
			continue
		}
		delete(s.inflight, id)
		out = append(out, domain.ProbeResult{
			TargetID:  id,
			Status:    domain.StatusError,
			Message:   "request timed out",
			CheckedAt: now,
		})
	}
	return out
}

func (s *Scheduler) abandon() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.inflight)
	s.inflight = make(map[string]time.Time)
	return n
}

func (s *Scheduler) roundDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) == 0
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	s.running = false
	s.lastRound = time.Now().UTC()
	took := s.lastRound.Sub(s.startedAt)
	s.mu.Unlock()
	s.logger.Info("round_finished", zap.Duration("took", took))
}

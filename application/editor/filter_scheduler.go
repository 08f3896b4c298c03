package editor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"orgmap/application/ports"
	"orgmap/domain/filter"
)

// FilterScheduler debounces filter queries. Each Schedule call cancels the
// previous pending run, so only the latest query is computed once input has
// been quiet for the delay.
type FilterScheduler struct {
	editor   *Editor
	renderer ports.Renderer
	logger   *zap.Logger

	mu         sync.Mutex
	delay      time.Duration
	fit        bool
	timer      *time.Timer
	generation uint64
	last       filter.Query
}

// NewFilterScheduler creates a scheduler that hands results to renderer
func NewFilterScheduler(e *Editor, renderer ports.Renderer, logger *zap.Logger) *FilterScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterScheduler{
		editor:   e,
		renderer: renderer,
		logger:   logger,
		delay:    e.Rules().FilterDebounce,
		fit:      e.Rules().FitOnFilter,
	}
}

// SetDelay changes the debounce delay for subsequent calls
func (s *FilterScheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.delay = d
}

// Delay returns the current debounce delay
func (s *FilterScheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Schedule queues a recomputation for q, replacing any pending one
func (s *FilterScheduler) Schedule(q filter.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	s.last = q
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen, q) })
}

// Last returns the most recently scheduled query
func (s *FilterScheduler) Last() filter.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stop cancels any pending run
func (s *FilterScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *FilterScheduler) fire(gen uint64, q filter.Query) {
	s.mu.Lock()
	stale := gen != s.generation
	fit := s.fit
	s.mu.Unlock()
	// A timer that already fired cannot be stopped, so a newer call wins here.
	if stale {
		return
	}

	p := s.editor.Filter(q)
	s.renderer.ApplyPartition(p)
	if fit && p.Active && len(p.Visible) > 0 {
		s.renderer.Fit(p.Visible)
	}

	s.logger.Debug("Filter applied",
		zap.String("from", q.From),
		zap.String("to", q.To),
		zap.Bool("active", p.Active),
		zap.Int("visible", len(p.Visible)),
		zap.Int("ghosted", len(p.Ghosted)),
	)
}

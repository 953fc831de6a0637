package host

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// DefaultSaveDebounce is the quiet period before a scheduled save runs.
const DefaultSaveDebounce = 200 * time.Millisecond

// Saver coalesces bursts of save requests into one write.
type Saver struct {
	save      func(context.Context) error
	debounced func(func())
	log       *zap.Logger

	mu    sync.Mutex
	dirty bool

	saving sync.Mutex
}

// NewSaver returns a Saver that calls save once per quiet period of wait.
func NewSaver(save func(context.Context) error, wait time.Duration, log *zap.Logger) *Saver {
	if wait <= 0 {
		wait = DefaultSaveDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Saver{
		save:      save,
		debounced: debounce.New(wait),
		log:       log.Named("saver"),
	}
}

// Schedule requests a save. It never blocks on I/O.
func (s *Saver) Schedule() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	s.debounced(s.fire)
}

// Pending reports whether a scheduled save has not run yet.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Saver) fire() {
	s.saving.Lock()
	defer s.saving.Unlock()
	if !s.take() {
		return
	}
	if err := s.save(context.Background()); err != nil {
		s.log.Error("debounced save failed", zap.Error(err))
	}
}

func (s *Saver) take() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return false
	}
	s.dirty = false
	return true
}

// Flush runs a pending save immediately. It waits for a save already in
// flight.
func (s *Saver) Flush(ctx context.Context) error {
	s.saving.Lock()
	defer s.saving.Unlock()
	if !s.take() {
		return nil
	}
	return s.save(ctx)
}

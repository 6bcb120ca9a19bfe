// Package schedule implements a cooperative deadline scheduler. It owns no
// goroutines: the host loop advances it by calling Tick once per iteration.
package schedule

import (
	"time"

	"go.uber.org/zap"
)

// Handle identifies a scheduled deadline. The zero Handle is never issued.
type Handle uint64

type deadline struct {
	handle    Handle
	fireAt    time.Time
	callback  func()
	cancelled bool
}

// Scheduler holds the outstanding deadlines. The set is expected to stay
// small (one per channel session plus one per live segment), so Tick does a
// flat scan instead of maintaining a heap.
type Scheduler struct {
	now     time.Time
	next    Handle
	pending []*deadline
	byID    map[Handle]*deadline
	logger  *zap.Logger
}

// New creates a scheduler whose clock starts at start.
func New(start time.Time, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		now:    start,
		byID:   map[Handle]*deadline{},
		logger: logger.Named("schedule"),
	}
}

// Now returns the time of the most recent Tick (or the start time).
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Len returns the number of outstanding deadlines.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// Schedule registers callback to run on the first Tick at or after Now()+d.
// Negative durations are treated as zero.
func (s *Scheduler) Schedule(d time.Duration, callback func()) Handle {
	if d < 0 {
		d = 0
	}
	s.next++
	dl := &deadline{handle: s.next, fireAt: s.now.Add(d), callback: callback}
	s.pending = append(s.pending, dl)
	s.byID[dl.handle] = dl
	return dl.handle
}

// Cancel marks the deadline inert. It reports whether a pending deadline was
// cancelled; stale, zero and already-fired handles are no-ops.
func (s *Scheduler) Cancel(h Handle) bool {
	dl, ok := s.byID[h]
	if !ok {
		return false
	}
	dl.cancelled = true
	s.remove(h)
	return true
}

// Remaining returns the time left before h fires, never negative. Unknown
// handles report zero.
func (s *Scheduler) Remaining(h Handle) time.Duration {
	dl, ok := s.byID[h]
	if !ok {
		return 0
	}
	if left := dl.fireAt.Sub(s.now); left > 0 {
		return left
	}
	return 0
}

// Reschedule moves h to fire at Now()+d. It reports false when h is no
// longer pending.
func (s *Scheduler) Reschedule(h Handle, d time.Duration) bool {
	dl, ok := s.byID[h]
	if !ok {
		return false
	}
	if d < 0 {
		d = 0
	}
	dl.fireAt = s.now.Add(d)
	return true
}

// Tick advances the clock to now, collects every due deadline, then runs
// their callbacks in scheduling order and returns how many ran. Callbacks run
// only after the scan completes; a deadline cancelled by an earlier callback
// in the same batch never runs. A handle is consumed just before its
// callback starts, so cancelling it from inside the callback is a no-op.
func (s *Scheduler) Tick(now time.Time) int {
	if now.After(s.now) {
		s.now = now
	}

	var due []*deadline
	kept := s.pending[:0]
	for _, dl := range s.pending {
		if !s.now.Before(dl.fireAt) {
			due = append(due, dl)
			continue
		}
		kept = append(kept, dl)
	}
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = kept

	fired := 0
	for _, dl := range due {
		if dl.cancelled {
			continue
		}
		if s.now.Before(dl.fireAt) {
			// Rescheduled by an earlier callback in this batch.
			s.pending = append(s.pending, dl)
			continue
		}
		delete(s.byID, dl.handle)
		fired++
		s.run(dl)
	}
	return fired
}

func (s *Scheduler) run(dl *deadline) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("deadline callback panicked",
				zap.Uint64("handle", uint64(dl.handle)),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	dl.callback()
}

func (s *Scheduler) remove(h Handle) {
	delete(s.byID, h)
	for i, dl := range s.pending {
		if dl.handle == h {
			copy(s.pending[i:], s.pending[i+1:])
			s.pending[len(s.pending)-1] = nil
			s.pending = s.pending[:len(s.pending)-1]
			return
		}
	}
}

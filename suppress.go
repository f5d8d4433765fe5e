package kreq

import "sync"

// FullRequestKind distinguishes the two full-cluster Metadata request
// shapes that get their own suppression counter (spec.md §4.3): "all
// topics" and "brokers only".
type FullRequestKind uint8

const (
	FullTopics FullRequestKind = iota
	FullBrokers
)

// Suppressor de-duplicates in-flight full-cluster Metadata requests.
// The two counters are named cells in this struct rather than package
// globals, each guarded by the struct's own mutex — no hidden statics
// (spec.md §9 Design Notes).
type Suppressor struct {
	mu    sync.Mutex
	cond  *sync.Cond
	inFlight [2]int
}

// NewSuppressor returns a ready-to-use Suppressor.
func NewSuppressor() *Suppressor {
	s := &Suppressor{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Begin increments the counter for kind and returns true if the send may
// proceed. It returns false if a matching unforced request is already in
// flight, in which case the caller must return ErrPrevInProgress instead
// of sending. Forced requests (those with a caller reply queue) bypass
// this gate entirely and must not call Begin.
func (s *Suppressor) Begin(kind FullRequestKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[kind] > 0 {
		return false
	}
	s.inFlight[kind]++
	return true
}

// End decrements the counter for kind and wakes any waiters. Called on
// reply, whether the reply was success or failure.
func (s *Suppressor) End(kind FullRequestKind) {
	s.mu.Lock()
	if s.inFlight[kind] > 0 {
		s.inFlight[kind]--
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Wait blocks until the counter for kind reaches zero. Not required by
// the send path itself, but lets a caller that received
// ErrPrevInProgress wait for the in-flight request to finish before
// retrying, rather than busy-polling.
func (s *Suppressor) Wait(kind FullRequestKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inFlight[kind] > 0 {
		s.cond.Wait()
	}
}

package checkpoint

import (
	"sync"
	"time"

	"checkpoint-builder/logger"
	"checkpoint-builder/models"

	"go.uber.org/zap"
)

// Policy decides which best-chain blocks become checkpoints.
type Policy struct {
	// Interval is the number of blocks between difficulty adjustments
	Interval uint32
	// MinAge keeps checkpoints clear of any plausible fork
	MinAge time.Duration
	// Now is captured once when the run starts
	Now time.Time
}

// Validate checks the policy can select anything at all
func (p Policy) Validate() error {
	if p.Interval == 0 {
		return ErrInvalidInterval
	}
	return nil
}

// Cutoff is the newest block timestamp, in unix seconds, still old enough to checkpoint.
func (p Policy) Cutoff() int64 {
	return p.Now.Add(-p.MinAge).Unix()
}

// Qualifies reports whether h sits on an interval boundary and is old enough
func (p Policy) Qualifies(h models.Header) bool {
	return h.Height%p.Interval == 0 && h.Time <= p.Cutoff()
}

// Selector accumulates checkpoints from best-chain notifications.
type Selector struct {
	policy Policy

	mu   sync.Mutex
	set  *Set
	seen uint64
}

// NewSelector creates a selector for the given policy
func NewSelector(policy Policy) (*Selector, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Selector{
		policy: policy,
		set:    NewSet(),
	}, nil
}

// OnBestBlock is invoked once per block accepted onto the best chain.
// It may be called from any goroutine and never blocks on I/O.
func (s *Selector) OnBestBlock(h models.Header) {
	s.mu.Lock()
	s.seen++
	if !s.policy.Qualifies(h) {
		s.mu.Unlock()
		return
	}
	s.set.Put(h)
	s.mu.Unlock()

	logger.Logger.Info("Checkpointing block",
		zap.String("hash", h.Hash.Hex()), zap.Uint32("height", h.Height))
}

// Seen returns how many notifications the selector has received
func (s *Selector) Seen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

// Len returns the number of checkpoints accepted so far
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Len()
}

// Finish returns a copy of the accumulated set. It fails with
// ErrNoCheckpointsFound if nothing qualified.
func (s *Selector) Finish() (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set.Len() == 0 {
		return nil, ErrNoCheckpointsFound
	}
	return s.set.clone(), nil
}

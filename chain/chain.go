package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"checkpoint-builder/logger"
	"checkpoint-builder/models"
	"checkpoint-builder/repository"

	"go.uber.org/zap"
)

var ErrOutOfOrder = errors.New("best-chain header delivered out of height order")

// Listener receives every header accepted onto the best chain
type Listener func(models.Header)

// Notifier delivers best-chain headers in non-decreasing height order.
// Run returns once no more historical headers will arrive.
type Notifier interface {
	AddListener(l Listener)
	Run(ctx context.Context) (uint64, error)
}

// Replayer notifies listeners of every header in the local header store,
// lowest height first.
type Replayer struct {
	repo       repository.HeaderRepositoryInterface
	fromHeight uint32

	mu         sync.Mutex
	listeners  []Listener
	onCaughtUp func(tip models.Header)
}

// NewReplayer creates a replayer starting at fromHeight
func NewReplayer(repo repository.HeaderRepositoryInterface, fromHeight uint32) *Replayer {
	return &Replayer{repo: repo, fromHeight: fromHeight}
}

// AddListener registers l for every subsequent Run
func (r *Replayer) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// OnCaughtUp sets a callback fired with the last delivered header when the store is exhausted
func (r *Replayer) OnCaughtUp(fn func(tip models.Header)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCaughtUp = fn
}

// Run replays the store and returns the number of headers delivered
func (r *Replayer) Run(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	listeners := append([]Listener(nil), r.listeners...)
	onCaughtUp := r.onCaughtUp
	r.mu.Unlock()

	var (
		delivered uint64
		last      models.Header
	)
	err := r.repo.ForEach(r.fromHeight, func(h *models.Header) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if delivered > 0 && h.Height < last.Height {
			return fmt.Errorf("%w: %d after %d", ErrOutOfOrder, h.Height, last.Height)
		}
		for _, l := range listeners {
			l(*h)
		}
		last = *h
		delivered++
		return nil
	})
	if err != nil {
		return delivered, err
	}

	logger.Logger.Info("Header replay caught up",
		zap.Uint64("delivered", delivered), zap.Uint32("tip_height", last.Height))
	if onCaughtUp != nil && delivered > 0 {
		onCaughtUp(last)
	}
	return delivered, nil
}

package repository

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"checkpoint-builder/db"
	"checkpoint-builder/models"
)

var (
	ErrHeaderNotFound = errors.New("header not found")
	ErrEmptyStore     = errors.New("header store is empty")
	ErrHeightExists   = errors.New("header already stored at height")
	ErrHeightGap      = errors.New("header does not extend the stored tip")
)

var (
	headerPrefix = []byte("header:")
	tipKey       = []byte("meta:tip")
)

// It abstracts the header storage layer from the checkpoint logic
type HeaderRepositoryInterface interface {
	PutHeader(h *models.Header) error
	GetHeader(height uint32) (*models.Header, error)
	Tip() (*models.Header, error)
	ForEach(fromHeight uint32, fn func(*models.Header) error) error
}

// HeaderRepository implements the HeaderRepositoryInterface using LevelDB as the storage backend
type HeaderRepository struct {
	db *db.LevelDB
	mu sync.Mutex
}

// NewHeaderRepository creates and returns a new HeaderRepository instance
func NewHeaderRepository(db *db.LevelDB) *HeaderRepository {
	return &HeaderRepository{db: db}
}

// headerKey encodes the height big-endian so LevelDB key order is height order.
func headerKey(height uint32) []byte {
	key := make([]byte, len(headerPrefix)+4)
	copy(key, headerPrefix)
	binary.BigEndian.PutUint32(key[len(headerPrefix):], height)
	return key
}

// PutHeader appends a best-chain header. The first header may sit at any height,
// every later one must be exactly tip+1.
func (r *HeaderRepository) PutHeader(h *models.Header) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tip, err := r.tip()
	switch {
	case errors.Is(err, ErrEmptyStore):
	case err != nil:
		return err
	case h.Height <= tip.Height:
		return fmt.Errorf("%w: %d (tip %d)", ErrHeightExists, h.Height, tip.Height)
	case h.Height != tip.Height+1:
		return fmt.Errorf("%w: %d (tip %d)", ErrHeightGap, h.Height, tip.Height)
	}

	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return r.db.PutMany(map[string][]byte{
		string(headerKey(h.Height)): data,
		string(tipKey):              data,
	})
}

// GetHeader retrieves a header from LevelDB storage by its height
func (r *HeaderRepository) GetHeader(height uint32) (*models.Header, error) {
	data, err := r.db.Get(headerKey(height))
	if db.IsNotFound(err) {
		return nil, fmt.Errorf("%w: height %d", ErrHeaderNotFound, height)
	}
	if err != nil {
		return nil, err
	}
	var h models.Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Tip returns the highest stored header
func (r *HeaderRepository) Tip() (*models.Header, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tip()
}

func (r *HeaderRepository) tip() (*models.Header, error) {
	data, err := r.db.Get(tipKey)
	if db.IsNotFound(err) {
		return nil, ErrEmptyStore
	}
	if err != nil {
		return nil, err
	}
	var h models.Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ForEach walks stored headers in ascending height order starting at fromHeight.
// Iteration stops at the first error returned by fn.
func (r *HeaderRepository) ForEach(fromHeight uint32, fn func(*models.Header) error) error {
	limit := append([]byte(nil), headerPrefix...)
	limit[len(limit)-1]++
	iter := r.db.NewRangeIterator(headerKey(fromHeight), limit)
	defer iter.Release()

	for iter.Next() {
		var h models.Header
		if err := json.Unmarshal(iter.Value(), &h); err != nil {
			return err
		}
		if err := fn(&h); err != nil {
			return err
		}
	}
	return iter.Error()
}

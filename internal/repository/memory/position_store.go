package memory

import (
	"context"
	"sync"
	"time"

	"leverguard/internal/domain/position"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
	"leverguard/pkg/logger"
)

// Compile-time check
var _ position.Store = (*PositionStore)(nil)

type positionEntry struct {
	mu  sync.Mutex
	pos position.Position
}

// PositionStore keeps live positions in memory with one lock per position.
// The map lock only guards membership; field access always goes through the entry lock.
type PositionStore struct {
	mu      sync.RWMutex
	entries map[string]*positionEntry
	order   []string
	now     func() time.Time
	log     *logger.Logger
}

// NewPositionStore creates an empty store
func NewPositionStore() *PositionStore {
	return &PositionStore{
		entries: make(map[string]*positionEntry),
		now:     time.Now,
		log:     logger.Get().With("component", "position_store"),
	}
}

// Put inserts or replaces a position after validating it
func (s *PositionStore) Put(_ context.Context, p position.Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.RecomputeHealth()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now().UTC()
	}

	s.mu.Lock()
	e, ok := s.entries[p.ID]
	if !ok {
		e = &positionEntry{}
		s.entries[p.ID] = e
		s.order = append(s.order, p.ID)
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.pos = p
	e.mu.Unlock()
	return nil
}

// Load seeds the store from a source and returns how many positions were stored.
// Malformed positions are logged and skipped; only a source failure is an error.
func (s *PositionStore) Load(ctx context.Context, src position.Source) (int, error) {
	positions, err := src.Load(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load positions")
	}

	stored := 0
	for _, p := range positions {
		if p == nil {
			continue
		}
		if err := s.Put(ctx, *p); err != nil {
			metrics.RecordInvalidPosition("load")
			s.log.Warnw("Skipping malformed position",
				"position_id", p.ID,
				"error", err,
			)
			continue
		}
		stored++
	}
	return stored, nil
}

// List returns snapshots of all positions in insertion order
func (s *PositionStore) List(_ context.Context) []position.Position {
	s.mu.RLock()
	entries := make([]*positionEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	s.mu.RUnlock()

	out := make([]position.Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.pos)
		e.mu.Unlock()
	}
	return out
}

// Get returns a snapshot of one position
func (s *PositionStore) Get(_ context.Context, id string) (position.Position, bool) {
	e, ok := s.entry(id)
	if !ok {
		return position.Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, true
}

// Update applies fn to a copy of the position under its lock.
// The copy replaces the stored value only if fn succeeds and the result is valid.
func (s *PositionStore) Update(_ context.Context, id string, fn func(p *position.Position) error) (position.Position, error) {
	e, ok := s.entry(id)
	if !ok {
		return position.Position{}, errors.Wrapf(errors.ErrPositionNotFound, "position %s", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.pos
	if err := fn(&next); err != nil {
		return e.pos, err
	}
	if err := next.Validate(); err != nil {
		return e.pos, err
	}
	next.RecomputeHealth()
	next.UpdatedAt = s.now().UTC()

	e.pos = next
	return next, nil
}

// Len returns the number of positions
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *PositionStore) entry(id string) (*positionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Package livesync keeps a typed, validated, ordered in-memory copy of one
// document collection up to date through a live query.
package livesync

import (
	"context"
	"sync"

	"adminpanel/internal/docstore"
	"adminpanel/internal/logging"
)

// State is the observable phase of a Synchronizer.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Decoder turns a raw document into a typed record or explains why it cannot.
type Decoder[T any] func(docstore.Document) (T, error)

// Snapshot is what a Synchronizer currently holds. Records is only meaningful
// when State is Ready and Message only when State is Failed.
type Snapshot[T any] struct {
	State   State
	Records []T
	Message string
}

// Synchronizer owns the in-memory snapshot of a collection. Consumers read
// copies of it and never mutate it.
type Synchronizer[T any] struct {
	query  docstore.Query
	decode Decoder[T]
	log    logging.Logger

	mu        sync.RWMutex
	snap      Snapshot[T]
	settled   chan struct{}
	listeners map[int]func(Snapshot[T])
	nextID    int
	closed    bool

	sub       docstore.Subscription
	closeOnce sync.Once
}

// New opens a live query for q and starts in Loading. A query the store
// refuses puts the Synchronizer straight into Failed; New itself never fails.
func New[T any](store docstore.Subscriber, q docstore.Query, decode Decoder[T], log logging.Logger) *Synchronizer[T] {
	s := &Synchronizer[T]{
		query:     q,
		decode:    decode,
		log:       log.With("collection", q.Collection),
		snap:      Snapshot[T]{State: Loading},
		settled:   make(chan struct{}),
		listeners: make(map[int]func(Snapshot[T])),
	}

	sub, err := store.Subscribe(q, s.handle)
	if err != nil {
		s.handle(nil, err)
		return s
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return s
}

func (s *Synchronizer[T]) handle(docs []docstore.Document, err error) {
	ctx := context.Background()

	var next Snapshot[T]
	if err != nil {
		s.log.Error(ctx, "live query failed", "error", err)
		next = Snapshot[T]{State: Failed, Message: err.Error()}
	} else {
		records := make([]T, 0, len(docs))
		for _, d := range docs {
			rec, derr := s.decode(d)
			if derr != nil {
				s.log.Warn(ctx, "dropping malformed record", "id", d.ID, "reason", derr)
				continue
			}
			records = append(records, rec)
		}
		next = Snapshot[T]{State: Ready, Records: records}
	}

	s.mu.Lock()
	if s.closed || s.snap.State == Failed {
		s.mu.Unlock()
		return
	}
	if s.snap.State == Loading {
		close(s.settled)
	}
	s.snap = next
	fns := make([]func(Snapshot[T]), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.log.Debug(ctx, "snapshot updated", "state", next.State.String(), "count", len(next.Records))
	for _, fn := range fns {
		fn(s.copyOf(next))
	}
}

func (s *Synchronizer[T]) copyOf(snap Snapshot[T]) Snapshot[T] {
	if snap.Records != nil {
		snap.Records = append([]T(nil), snap.Records...)
	}
	return snap
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(s.snap)
}

// Wait blocks until the first snapshot or failure arrives, or ctx ends.
func (s *Synchronizer[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	select {
	case <-s.settled:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// OnChange registers fn for every later state change and returns a function
// that removes it. fn runs on the store's delivery goroutine.
func (s *Synchronizer[T]) OnChange(fn func(Snapshot[T])) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Close releases the live query. No listener is invoked for changes arriving
// after Close returns. Calling Close again is a no-op.
func (s *Synchronizer[T]) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.listeners = make(map[int]func(Snapshot[T]))
		s.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

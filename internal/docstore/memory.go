package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adminpanel/internal/logging"

	"github.com/google/uuid"
)

// Option configures a store.
type Option func(*options)

type options struct {
	log logging.Logger
	now func() time.Time
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides the clock used for ServerTimestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		log: logging.Discard(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	opts options
	hub  *hub

	mu          sync.RWMutex
	collections map[string]map[string]Document
	closed      bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		opts:        buildOptions(opts),
		collections: make(map[string]map[string]Document),
	}
	s.hub = newHub(s.read, s.opts.log)
	return s
}

func (s *MemoryStore) read(_ context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	docs := make([]Document, 0, len(s.collections[q.Collection]))
	for _, d := range s.collections[q.Collection] {
		docs = append(docs, cloneDocument(d))
	}
	sortDocuments(docs, q)
	return docs, nil
}

// Subscribe implements Subscriber.
func (s *MemoryStore) Subscribe(q Query, l Listener) (Subscription, error) {
	sub, err := s.hub.subscribe(q, l)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns one document.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	d, ok := s.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return cloneDocument(d), nil
}

// Create implements Mutator.
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	id := uuid.New().String()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	coll[id] = Document{ID: id, Fields: resolveFields(fields, s.opts.now())}
	s.mu.Unlock()

	s.hub.changed(ctx, collection, id, OpCreate)
	return id, nil
}

// Update implements Mutator.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	d, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	merged := cloneDocument(d)
	for k, v := range resolveFields(fields, s.opts.now()) {
		merged.Fields[k] = v
	}
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.hub.changed(ctx, collection, id, OpUpdate)
	return nil
}

// Delete implements Mutator.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.hub.changed(ctx, collection, id, OpDelete)
	return nil
}

// Put stores a document with a caller-chosen id and raw fields, bypassing
// field resolution. It exists for seeding and for importing foreign data.
func (s *MemoryStore) Put(ctx context.Context, collection string, d Document) {
	s.mu.Lock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Document)
		s.collections[collection] = coll
	}
	coll[d.ID] = cloneDocument(d)
	s.mu.Unlock()

	s.hub.changed(ctx, collection, d.ID, OpUpdate)
}

// AttachFeed publishes local mutations to feed and re-delivers snapshots for
// changes other processes publish.
func (s *MemoryStore) AttachFeed(ctx context.Context, feed ChangeFeed) error {
	return s.hub.attach(ctx, feed)
}

// Close ends every live query and rejects further calls.
func (s *MemoryStore) Close() error {
	s.hub.close()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

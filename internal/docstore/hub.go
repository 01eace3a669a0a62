package docstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"adminpanel/internal/logging"

	"github.com/google/uuid"
)

const readTimeout = 5 * time.Second

type readFunc func(ctx context.Context, q Query) ([]Document, error)

// hub fans collection changes out to live queries. Every subscription owns one
// goroutine that coalesces change signals, re-reads the collection and delivers
// the result, so a subscriber never sees snapshots out of order.
type hub struct {
	read readFunc
	log  logging.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool

	origin string
	feedMu sync.RWMutex
	feed   ChangeFeed
}

func newHub(read readFunc, log logging.Logger) *hub {
	return &hub{
		read:   read,
		log:    log,
		subs:   make(map[string]map[*subscription]struct{}),
		origin: uuid.New().String(),
	}
}

func (h *hub) subscribe(q Query, l Listener) (*subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	s := &subscription{
		hub:      h,
		query:    q,
		listener: l,
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	// the initial fetch
	s.signal <- struct{}{}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := h.subs[q.Collection]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[q.Collection] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	go s.run()
	return s, nil
}

func (h *hub) remove(s *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.query.Collection]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.query.Collection)
		}
	}
}

// notify marks every live query on collection as stale.
func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[collection] {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// changed notifies local subscribers and publishes the change to other processes.
func (h *hub) changed(ctx context.Context, collection, id string, op Op) {
	h.notify(collection)

	h.feedMu.RLock()
	feed := h.feed
	h.feedMu.RUnlock()
	if feed == nil {
		return
	}
	c := Change{Origin: h.origin, Collection: collection, DocumentID: id, Op: op, At: time.Now().UTC()}
	if err := feed.Publish(ctx, c); err != nil {
		h.log.Warn(ctx, "failed to publish document change", "collection", collection, "id", id, "op", op, "error", err)
	}
}

// attach starts consuming changes made by other processes.
func (h *hub) attach(ctx context.Context, feed ChangeFeed) error {
	h.feedMu.Lock()
	h.feed = feed
	h.feedMu.Unlock()

	return feed.Listen(ctx, func(c Change) {
		if c.Origin == h.origin {
			return
		}
		h.log.Debug(ctx, "remote document change", "collection", c.Collection, "id", c.DocumentID, "op", c.Op)
		h.notify(c.Collection)
	})
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Unsubscribe()
	}
}

type subscription struct {
	hub      *hub
	query    Query
	listener Listener

	signal  chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-s.signal:
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		docs, err := s.hub.read(ctx, s.query)
		cancel()

		if s.stopped.Load() {
			return
		}
		s.listener(docs, err)
		if err != nil {
			s.Unsubscribe()
			return
		}
	}
}

// Unsubscribe implements Subscription.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.stop)
		s.hub.remove(s)
	})
}

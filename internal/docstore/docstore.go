// Package docstore is the document database the panel keeps its collections in.
// It offers live, ordered collection queries plus single-document mutations, and
// stamps server-side creation times on request.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrClosed is returned by a store that has been closed.
	ErrClosed = errors.New("document store closed")
	// ErrInvalidQuery is returned for a query without a collection or with an unknown direction.
	ErrInvalidQuery = errors.New("invalid query")
)

// Direction is the sort direction of a live query.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type sentinel string

// ServerTimestamp may be used as a field value on Create or Update; the store
// replaces it with its own current time.
const ServerTimestamp sentinel = "docstore.serverTimestamp"

// Document is one stored record. ID lives outside Fields and is never stored as a field.
type Document struct {
	ID     string
	Fields map[string]any
}

// Query selects a whole collection ordered by one field.
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
}

func (q Query) validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	switch q.Direction {
	case Asc, Desc, "":
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidQuery, q.Direction)
	}
	return nil
}

// Listener receives the full ordered snapshot on every change of the queried
// collection. A non-nil err ends the subscription; no further calls follow it.
type Listener func(docs []Document, err error)

// Subscription is the handle of a live query.
type Subscription interface {
	// Unsubscribe stops future deliveries and releases the query. It is
	// synchronous and safe to call more than once.
	Unsubscribe()
}

// Subscriber opens live queries.
type Subscriber interface {
	Subscribe(q Query, l Listener) (Subscription, error)
}

// Mutator changes single documents.
type Mutator interface {
	// Create stores fields under a new store-assigned id and returns it.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges fields into an existing document; unspecified fields are untouched.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error
}

// Store is the full document store contract.
type Store interface {
	Subscriber
	Mutator
	Get(ctx context.Context, collection, id string) (Document, error)
	// AttachFeed shares this store's changes with other processes through feed.
	AttachFeed(ctx context.Context, feed ChangeFeed) error
	Close() error
}

// Op is the kind of mutation carried by a Change.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one mutation, published to other processes sharing the store.
type Change struct {
	Origin     string    `json:"origin"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	Op         Op        `json:"op"`
	At         time.Time `json:"at"`
}

// ChangeFeed carries Changes between processes.
type ChangeFeed interface {
	Publish(ctx context.Context, c Change) error
	// Listen starts delivering incoming changes to fn in the background until ctx is done.
	Listen(ctx context.Context, fn func(Change)) error
}

// resolveFields copies fields, drops any "id" key and replaces ServerTimestamp with now.
func resolveFields(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		if s, ok := v.(sentinel); ok && s == ServerTimestamp {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

func cloneDocument(d Document) Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return Document{ID: d.ID, Fields: fields}
}

package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentRow is the table layout of GormStore: one row per document, fields as JSON.
type documentRow struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	Collection string    `gorm:"index;type:varchar(100);not null"`
	Data       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

// GormStore is a Store on top of any gorm dialect (postgres in production,
// sqlite for tests and single-node setups).
type GormStore struct {
	db   *gorm.DB
	opts options
	hub  *hub
}

// NewGormStore migrates the documents table and returns the store.
func NewGormStore(db *gorm.DB, opts ...Option) (*GormStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	s := &GormStore{db: db, opts: buildOptions(opts)}
	s.hub = newHub(s.read, s.opts.log)
	return s, nil
}

func (s *GormStore) read(ctx context.Context, q Query) ([]Document, error) {
	var rows []documentRow
	if err := s.db.WithContext(ctx).Where("collection = ?", q.Collection).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", q.Collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Data)
		if err != nil {
			// an undecodable row is handed on empty; shape checks upstream drop it
			s.opts.log.Warn(ctx, "undecodable document payload", "collection", q.Collection, "id", row.ID, "error", err)
			fields = map[string]any{}
		}
		docs = append(docs, Document{ID: row.ID, Fields: fields})
	}
	sortDocuments(docs, q)
	return docs, nil
}

// Subscribe implements Subscriber.
func (s *GormStore) Subscribe(q Query, l Listener) (Subscription, error) {
	sub, err := s.hub.subscribe(q, l)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns one document.
func (s *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND collection = ?", id, collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(row.Data)
	if err != nil {
		return Document{}, fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	return Document{ID: row.ID, Fields: fields}, nil
}

// Create implements Mutator.
func (s *GormStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data, err := encodeFields(resolveFields(fields, s.opts.now()))
	if err != nil {
		return "", err
	}
	row := documentRow{ID: uuid.New().String(), Collection: collection, Data: data}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}

	s.hub.changed(ctx, collection, row.ID, OpCreate)
	return row.ID, nil
}

// Update implements Mutator.
func (s *GormStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentRow
		err := tx.First(&row, "id = ? AND collection = ?", id, collection).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		current, err := decodeFields(row.Data)
		if err != nil {
			return err
		}
		for k, v := range resolveFields(fields, s.opts.now()) {
			current[k] = v
		}
		data, err := encodeFields(current)
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("data", data).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}

	s.hub.changed(ctx, collection, id, OpUpdate)
	return nil
}

// Delete implements Mutator.
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).Delete(&documentRow{}, "id = ? AND collection = ?", id, collection)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	s.hub.changed(ctx, collection, id, OpDelete)
	return nil
}

// AttachFeed publishes local mutations to feed and re-delivers snapshots for
// changes other processes publish.
func (s *GormStore) AttachFeed(ctx context.Context, feed ChangeFeed) error {
	return s.hub.attach(ctx, feed)
}

// Close ends every live query. The gorm connection belongs to the caller.
func (s *GormStore) Close() error {
	s.hub.close()
	return nil
}

// timestamps survive the JSON payload as {"$time": "<RFC3339Nano>"}
const timeKey = "$time"

func encodeFields(fields map[string]any) (string, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = encodeValue(v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode document fields: %w", err)
	}
	return string(b), nil
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return map[string]any{timeKey: t.UTC().Format(time.RFC3339Nano)}
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = encodeValue(inner)
		}
		return m
	}
	return v
}

func decodeFields(data string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	for k, v := range raw {
		raw[k] = decodeValue(v)
	}
	return raw, nil
}

func decodeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		if len(t) == 1 {
			if s, ok := t[timeKey].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return ts
				}
			}
		}
		for k, inner := range t {
			t[k] = decodeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = decodeValue(inner)
		}
		return t
	}
	return v
}

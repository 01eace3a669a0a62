package services

import (
	"context"
	"errors"
	"fmt"

	"adminpanel/internal/docstore"
	"adminpanel/internal/editor"
	"adminpanel/internal/listing"
	"adminpanel/internal/livesync"
	"adminpanel/internal/logging"
)

// Page is one rendered window of a collection listing.
type Page[T any] struct {
	Records   []T
	Query     string
	Page      int
	PageSize  int
	PageCount int
	Total     int
	Pages     []listing.PageLink
}

// RecordService handles business logic for one entity's records. Reads come
// from the synchronized snapshot; writes go to the store and flow back through
// the live query.
type RecordService[T any] struct {
	entity   Entity[T]
	store    docstore.Store
	sync     *livesync.Synchronizer[T]
	pageSize int
	log      logging.Logger
}

// NewRecordService creates a new RecordService.
func NewRecordService[T any](entity Entity[T], store docstore.Store, sync *livesync.Synchronizer[T], pageSize int, log logging.Logger) *RecordService[T] {
	return &RecordService[T]{
		entity:   entity,
		store:    store,
		sync:     sync,
		pageSize: pageSize,
		log:      log.With("entity", entity.Name),
	}
}

// Entity returns the entity descriptor.
func (s *RecordService[T]) Entity() Entity[T] { return s.entity }

// Sync returns the synchronizer the service reads from.
func (s *RecordService[T]) Sync() *livesync.Synchronizer[T] { return s.sync }

// Records returns the current snapshot, or ErrLoading / *SyncError when there is none.
func (s *RecordService[T]) Records() ([]T, error) {
	snap := s.sync.Snapshot()
	switch snap.State {
	case livesync.Loading:
		return nil, ErrLoading
	case livesync.Failed:
		return nil, &SyncError{Collection: s.entity.Collection, Message: snap.Message}
	}
	return snap.Records, nil
}

func (s *RecordService[T]) controller(records []T, query string, page int) *listing.Controller[T] {
	c := listing.New(s.entity.Visible, s.pageSize)
	c.SetRecords(records)
	c.SetQuery(query)
	if page > 1 {
		c.SetPage(page)
	}
	return c
}

// List returns the requested page of records matching query.
func (s *RecordService[T]) List(query string, page int) (Page[T], error) {
	records, err := s.Records()
	if err != nil {
		return Page[T]{}, err
	}
	c := s.controller(records, query, page)
	return render(c), nil
}

func render[T any](c *listing.Controller[T]) Page[T] {
	count := c.PageCount()
	return Page[T]{
		Records:   c.Current(),
		Query:     c.Query(),
		Page:      c.CurrentPage(),
		PageSize:  c.PageSize(),
		PageCount: count,
		Total:     len(c.Filtered()),
		Pages:     listing.PageNumbers(c.CurrentPage(), count),
	}
}

// Get reads one record straight from the store.
func (s *RecordService[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := s.store.Get(ctx, s.entity.Collection, id)
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", s.entity.Name, id, err)
	}
	rec, err := s.entity.Decode(doc)
	if err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", s.entity.Name, id, err)
	}
	return rec, nil
}

// Editor opens an editor for the record id, or a blank one when id is empty.
func (s *RecordService[T]) Editor(ctx context.Context, id string) (*editor.Editor, error) {
	if id == "" {
		return s.entity.Form.Create(), nil
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.entity.Edit(rec), nil
}

// Create validates draft and stores it as a new record, returning its id.
func (s *RecordService[T]) Create(ctx context.Context, draft map[string]string) (string, error) {
	e := s.entity.Form.Create()
	if err := e.SetAll(draft); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var id string
	err := e.Submit(ctx, func(ctx context.Context, p editor.Payload) error {
		var err error
		id, err = s.create(ctx, p)
		return err
	})
	return id, unwrapSave(err)
}

// Update applies draft to the existing record id.
func (s *RecordService[T]) Update(ctx context.Context, id string, draft map[string]string) error {
	e, err := s.Editor(ctx, id)
	if err != nil {
		return err
	}
	if err := e.SetAll(draft); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return unwrapSave(e.Submit(ctx, s.Save))
}

// Save persists an editor payload: a create when it has no id, otherwise an
// update of every field except the id and the preserved ones.
func (s *RecordService[T]) Save(ctx context.Context, p editor.Payload) error {
	if !p.IsUpdate() {
		_, err := s.create(ctx, p)
		return err
	}

	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		if _, preserved := p.Preserved[k]; preserved || k == "id" {
			continue
		}
		fields[k] = v
	}
	if err := s.store.Update(ctx, s.entity.Collection, p.ID, fields); err != nil {
		s.log.Error(ctx, "update failed", "id", p.ID, "error", err)
		return &MutationError{Op: "update", Collection: s.entity.Collection, ID: p.ID, Err: err}
	}
	s.log.Info(ctx, "record updated", "id", p.ID)
	return nil
}

func (s *RecordService[T]) create(ctx context.Context, p editor.Payload) (string, error) {
	fields := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		fields[k] = v
	}
	if s.entity.CreatedField != "" {
		fields[s.entity.CreatedField] = docstore.ServerTimestamp
	}
	id, err := s.store.Create(ctx, s.entity.Collection, fields)
	if err != nil {
		s.log.Error(ctx, "create failed", "error", err)
		return "", &MutationError{Op: "create", Collection: s.entity.Collection, Err: err}
	}
	s.log.Info(ctx, "record created", "id", id)
	return id, nil
}

// Delete removes the record id.
func (s *RecordService[T]) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, s.entity.Collection, id); err != nil {
		s.log.Error(ctx, "delete failed", "id", id, "error", err)
		return &MutationError{Op: "delete", Collection: s.entity.Collection, ID: id, Err: err}
	}
	s.log.Info(ctx, "record deleted", "id", id)
	return nil
}

// DeleteFromPage deletes id while the listing shows page of query and returns
// the page the listing should show afterwards. A failed delete leaves the
// page unchanged.
func (s *RecordService[T]) DeleteFromPage(ctx context.Context, id, query string, page int) (int, error) {
	records, err := s.Records()
	if err != nil {
		return page, err
	}
	c := s.controller(records, query, page)
	if err := s.Delete(ctx, id); err != nil {
		return c.CurrentPage(), err
	}
	c.AfterDelete(func(rec T) bool { return s.entity.ID(rec) == id })
	return c.CurrentPage(), nil
}

// unwrapSave strips the editor's wrapping so callers see the service error.
func unwrapSave(err error) error {
	if err == nil {
		return nil
	}
	var mut *MutationError
	if errors.As(err, &mut) {
		return mut
	}
	return err
}

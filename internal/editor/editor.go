// Package editor is the create-or-edit form state machine shared by every
// entity: it holds a string draft, validates all fields at once and hands a
// normalized payload to a save callback.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// State is the phase of an Editor.
type State int

const (
	Editing State = iota
	Validating
	Submitting
	Done
)

func (s State) String() string {
	return [...]string{"editing", "validating", "submitting", "done"}[s]
}

// SaveFailedNotice is shown when the save callback rejects a payload.
const SaveFailedNotice = "The record could not be saved. Please try again."

var (
	// ErrInvalid is matched by every *ValidationError.
	ErrInvalid = errors.New("invalid record")
	// ErrBusy is returned when Submit is called while a save is in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrDone is returned when a finished editor is used again.
	ErrDone = errors.New("editor already submitted")
	// ErrUnknownField is returned by Set for a field the form does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError carries one message per failing field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = e.Fields[name]
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Payload is what a successful submission hands to the save callback.
// ID and Preserved are only set in edit mode.
type Payload struct {
	ID        string
	Preserved map[string]any
	Fields    map[string]any
}

// IsUpdate reports whether the payload targets an existing record.
func (p Payload) IsUpdate() bool { return p.ID != "" }

// SaveFunc persists a payload.
type SaveFunc func(ctx context.Context, p Payload) error

// Form is the per-entity set of fields.
type Form struct {
	Fields []FieldSpec
}

// Create opens an editor seeded with empty defaults.
func (f Form) Create() *Editor {
	draft := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		draft[field.Name] = field.zero()
	}
	return &Editor{form: f, draft: draft}
}

// Edit opens an editor for the record id, seeded with values. preserved holds
// fields that are not editable but travel with every update, such as a
// creation time.
func (f Form) Edit(id string, values map[string]string, preserved map[string]any) *Editor {
	e := f.Create()
	e.id = id
	for name := range e.draft {
		if v, ok := values[name]; ok {
			e.draft[name] = v
		}
	}
	if len(preserved) > 0 {
		e.preserved = make(map[string]any, len(preserved))
		for k, v := range preserved {
			e.preserved[k] = v
		}
	}
	return e
}

// Editor holds one draft. It is safe for concurrent use.
type Editor struct {
	form      Form
	id        string
	preserved map[string]any

	mu     sync.Mutex
	state  State
	draft  map[string]string
	errors map[string]string
	notice string

	submitting atomic.Bool
}

// State returns the current phase.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ID returns the record id in edit mode and "" in create mode.
func (e *Editor) ID() string { return e.id }

// Submitting reports whether a save is in flight.
func (e *Editor) Submitting() bool { return e.submitting.Load() }

// Draft returns a copy of the current field values.
func (e *Editor) Draft() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.draft))
	for k, v := range e.draft {
		out[k] = v
	}
	return out
}

// Errors returns the per-field messages of the last validation.
func (e *Editor) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.errors))
	for k, v := range e.errors {
		out[k] = v
	}
	return out
}

// Notice returns the last submission failure notice, if any.
func (e *Editor) Notice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notice
}

// Set changes one draft value.
func (e *Editor) Set(field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Done {
		return ErrDone
	}
	if _, ok := e.draft[field]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	e.draft[field] = value
	return nil
}

// SetAll changes every draft value present in values. Unknown keys are rejected
// before anything is changed.
func (e *Editor) SetAll(values map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Done {
		return ErrDone
	}
	for k := range values {
		if _, ok := e.draft[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, k)
		}
	}
	for k, v := range values {
		e.draft[k] = v
	}
	return nil
}

// Validate runs every field rule and records all failures.
func (e *Editor) Validate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Done {
		return ErrDone
	}
	_, err := e.validateLocked()
	e.state = Editing
	return err
}

func (e *Editor) validateLocked() (map[string]any, error) {
	e.state = Validating
	values := make(map[string]any, len(e.form.Fields))
	errs := make(map[string]string)
	for _, field := range e.form.Fields {
		v, msg := field.check(e.draft[field.Name])
		if msg != "" {
			errs[field.Name] = msg
			continue
		}
		values[field.Name] = v
	}
	e.errors = errs
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return values, nil
}

// Submit validates the draft and, if it is fully valid, calls save with the
// normalized payload. A rejected save returns the editor to Editing with
// SaveFailedNotice set and the draft intact.
func (e *Editor) Submit(ctx context.Context, save SaveFunc) error {
	if !e.submitting.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.submitting.Store(false)

	e.mu.Lock()
	if e.state == Done {
		e.mu.Unlock()
		return ErrDone
	}
	values, err := e.validateLocked()
	if err != nil {
		e.state = Editing
		e.mu.Unlock()
		return err
	}
	e.notice = ""
	e.state = Submitting
	p := Payload{ID: e.id, Fields: values}
	if e.id != "" && e.preserved != nil {
		p.Preserved = make(map[string]any, len(e.preserved))
		for k, v := range e.preserved {
			p.Preserved[k] = v
		}
	}
	e.mu.Unlock()

	saveErr := save(ctx, p)

	e.mu.Lock()
	defer e.mu.Unlock()
	if saveErr != nil {
		e.state = Editing
		e.notice = SaveFailedNotice
		return fmt.Errorf("save record: %w", saveErr)
	}
	e.state = Done
	return nil
}

package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productForm = Form{Fields: []FieldSpec{
	{Name: "name", Label: "Name", Kind: Text},
	{Name: "description", Label: "Description", Kind: Text},
	{Name: "price", Label: "Price", Kind: Number},
	{Name: "stock", Label: "Stock", Kind: Integer},
	{Name: "category", Label: "Category", Kind: Text},
}}

var personForm = Form{Fields: []FieldSpec{
	{Name: "name", Label: "Name", Kind: Letters},
	{Name: "salary", Label: "Salary", Kind: Number},
}}

func validProduct(t *testing.T, e *Editor) {
	t.Helper()
	require.NoError(t, e.SetAll(map[string]string{
		"name": "  Running Shoes ", "description": "Light", "price": "79.90", "stock": "12", "category": "Sport",
	}))
}

func TestCreate_SeedsDefaults(t *testing.T) {
	e := productForm.Create()
	assert.Equal(t, map[string]string{
		"name": "", "description": "", "price": "0", "stock": "0", "category": "",
	}, e.Draft())
	assert.Equal(t, Editing, e.State())
	assert.Empty(t, e.ID())
}

func TestSubmit_AggregatesAllFieldErrors(t *testing.T) {
	e := productForm.Create()
	validProduct(t, e)
	require.NoError(t, e.Set("name", "   "))
	require.NoError(t, e.Set("price", "-1"))

	called := false
	err := e.Submit(context.Background(), func(context.Context, Payload) error {
		called = true
		return nil
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Len(t, verr.Fields, 2)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
	assert.False(t, called)
	assert.Equal(t, Editing, e.State())
	assert.Len(t, e.Errors(), 2)
}

func TestFieldRules(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSpec
		input string
		want  any
		fails bool
	}{
		{"text trimmed", FieldSpec{Name: "n", Kind: Text}, "  hi ", "hi", false},
		{"text blank", FieldSpec{Name: "n", Kind: Text}, " \t", nil, true},
		{"letters accented", FieldSpec{Name: "n", Kind: Letters}, "José Núñez", "José Núñez", false},
		{"letters digits", FieldSpec{Name: "n", Kind: Letters}, "R2D2", nil, true},
		{"number decimal", FieldSpec{Name: "n", Kind: Number}, "12.5", 12.5, false},
		{"number zero", FieldSpec{Name: "n", Kind: Number}, "0", 0.0, false},
		{"number negative", FieldSpec{Name: "n", Kind: Number}, "-0.5", nil, true},
		{"number garbage", FieldSpec{Name: "n", Kind: Number}, "abc", nil, true},
		{"number infinite", FieldSpec{Name: "n", Kind: Number}, "Inf", nil, true},
		{"integer ok", FieldSpec{Name: "n", Kind: Integer}, "7", int64(7), false},
		{"integer fraction", FieldSpec{Name: "n", Kind: Integer}, "7.5", nil, true},
		{"integer negative", FieldSpec{Name: "n", Kind: Integer}, "-3", nil, true},
		{"integer too large", FieldSpec{Name: "n", Kind: Integer}, "1e30", nil, true},
		{"integer max exceeded", FieldSpec{Name: "n", Kind: Integer}, "9223372036854775808", nil, true},
		{"integer large ok", FieldSpec{Name: "n", Kind: Integer}, "1000000000000", int64(1000000000000), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := tt.field.check(tt.input)
			if tt.fails {
				assert.NotEmpty(t, msg)
				return
			}
			assert.Empty(t, msg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmit_CreatePayload(t *testing.T) {
	e := productForm.Create()
	validProduct(t, e)

	var got Payload
	err := e.Submit(context.Background(), func(_ context.Context, p Payload) error {
		got = p
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Done, e.State())
	assert.False(t, got.IsUpdate())
	assert.Nil(t, got.Preserved)
	assert.Equal(t, map[string]any{
		"name": "Running Shoes", "description": "Light", "price": 79.9, "stock": int64(12), "category": "Sport",
	}, got.Fields)
}

func TestSubmit_EditCarriesIDAndPreservedFields(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := productForm.Edit("p1",
		map[string]string{"name": "Old", "description": "d", "price": "1", "stock": "2", "category": "c"},
		map[string]any{"createdAt": t0},
	)
	require.NoError(t, e.Set("name", "New"))

	var got Payload
	require.NoError(t, e.Submit(context.Background(), func(_ context.Context, p Payload) error {
		got = p
		return nil
	}))
	assert.True(t, got.IsUpdate())
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, map[string]any{"createdAt": t0}, got.Preserved)
	assert.Equal(t, "New", got.Fields["name"])
	assert.NotContains(t, got.Fields, "id")
	assert.NotContains(t, got.Fields, "createdAt")
}

func TestSubmit_SaveFailureKeepsEditorOpen(t *testing.T) {
	e := personForm.Create()
	require.NoError(t, e.SetAll(map[string]string{"name": "Ana", "salary": "1200"}))

	err := e.Submit(context.Background(), func(context.Context, Payload) error {
		assert.True(t, e.Submitting())
		assert.Equal(t, Submitting, e.State())
		return errors.New("store unavailable")
	})
	require.Error(t, err)
	assert.False(t, e.Submitting())
	assert.Equal(t, Editing, e.State())
	assert.Equal(t, SaveFailedNotice, e.Notice())
	assert.Equal(t, "Ana", e.Draft()["name"])

	require.NoError(t, e.Submit(context.Background(), func(context.Context, Payload) error { return nil }))
	assert.Equal(t, Done, e.State())
	assert.Empty(t, e.Notice())
}

func TestSubmit_RejectsReentryAndReuse(t *testing.T) {
	e := personForm.Create()
	require.NoError(t, e.SetAll(map[string]string{"name": "Ana", "salary": "1"}))

	err := e.Submit(context.Background(), func(ctx context.Context, p Payload) error {
		return e.Submit(ctx, func(context.Context, Payload) error { return nil })
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, e.Submitting())

	require.NoError(t, e.Submit(context.Background(), func(context.Context, Payload) error { return nil }))
	assert.ErrorIs(t, e.Submit(context.Background(), func(context.Context, Payload) error { return nil }), ErrDone)
	assert.ErrorIs(t, e.Set("name", "x"), ErrDone)

	assert.ErrorIs(t, e.Validate(), ErrDone)
	assert.Equal(t, Done, e.State())

	saves := 0
	err = e.Submit(context.Background(), func(context.Context, Payload) error {
		saves++
		return nil
	})
	assert.ErrorIs(t, err, ErrDone)
	assert.Zero(t, saves)
}

func TestSet_UnknownField(t *testing.T) {
	e := personForm.Create()
	assert.ErrorIs(t, e.Set("age", "3"), ErrUnknownField)
	assert.ErrorIs(t, e.SetAll(map[string]string{"name": "A", "age": "3"}), ErrUnknownField)
	assert.Equal(t, "", e.Draft()["name"])
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "79.9", FormatNumber(79.9))
	assert.Equal(t, "12", FormatNumber(12))
}

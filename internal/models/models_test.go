package models

import (
	"testing"
	"time"

	"adminpanel/internal/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductFromDocument(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := docstore.Document{ID: "p1", Fields: map[string]any{
		"name":        "Running Shoes",
		"description": "",
		"price":       int64(80),
		"stock":       12.0,
		"category":    "Sport",
		"createdAt":   created,
	}}

	p, err := ProductFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, Product{
		ID: "p1", Name: "Running Shoes", Description: "", Price: 80, Stock: 12, Category: "Sport", CreatedAt: created,
	}, p)
}

func TestProductFromDocument_Malformed(t *testing.T) {
	doc := docstore.Document{ID: "p2", Fields: map[string]any{
		"name": "No price", "description": "x", "stock": 1, "category": "c", "createdAt": time.Now(),
	}}
	_, err := ProductFromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p2")
	assert.Contains(t, err.Error(), "price")
}

func TestUserFromDocument(t *testing.T) {
	doc := docstore.Document{ID: "u1", Fields: map[string]any{
		"name": "Ana", "lastName": "Pérez", "salary": 1500.5, "country": "España", "city": "Sevilla",
	}}
	u, err := UserFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Name: "Ana", LastName: "Pérez", Salary: 1500.5, Country: "España", City: "Sevilla"}, u)

	delete(doc.Fields, "city")
	_, err = UserFromDocument(doc)
	assert.Error(t, err)
}

func TestProductFromDocument_OutOfRange(t *testing.T) {
	fields := func() map[string]any {
		return map[string]any{
			"name": "Lamp", "description": "", "price": 20.0, "stock": int64(4), "category": "Home", "createdAt": time.Now(),
		}
	}
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"negative price", "price", -5.0},
		{"negative stock", "stock", int64(-1)},
		{"stock beyond int range", "stock", 1e30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fields()
			f[tt.field] = tt.value
			_, err := ProductFromDocument(docstore.Document{ID: "p3", Fields: f})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestUserFromDocument_NegativeSalary(t *testing.T) {
	doc := docstore.Document{ID: "u2", Fields: map[string]any{
		"name": "Ana", "lastName": "Pérez", "salary": -1.0, "country": "España", "city": "Sevilla",
	}}
	_, err := UserFromDocument(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salary")
}

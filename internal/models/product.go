package models

import (
	"fmt"
	"time"

	"adminpanel/internal/docstore"
	"adminpanel/internal/schema"
)

// ProductsCollection is the document collection products live in.
const ProductsCollection = "products"

// Product represents a catalog item.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"` // set by the store on creation, never edited
}

// ProductSchema is the declared shape of a product document.
var ProductSchema = schema.Schema{Fields: []schema.Field{
	{Name: "name", Kind: schema.String, Required: true},
	{Name: "description", Kind: schema.String, Required: true, AllowEmpty: true},
	{Name: "price", Kind: schema.Number, Required: true, NonNegative: true},
	{Name: "stock", Kind: schema.Integer, Required: true, NonNegative: true},
	{Name: "category", Kind: schema.String, Required: true},
	{Name: "createdAt", Kind: schema.Timestamp, Required: true},
}}

// ProductFromDocument checks doc against ProductSchema and converts it.
func ProductFromDocument(doc docstore.Document) (Product, error) {
	if err := ProductSchema.Check(doc.Fields); err != nil {
		return Product{}, fmt.Errorf("product %s: %w", doc.ID, err)
	}
	price, _ := schema.AsFloat(doc.Fields["price"])
	stock, _ := schema.AsFloat(doc.Fields["stock"])
	return Product{
		ID:          doc.ID,
		Name:        doc.Fields["name"].(string),
		Description: doc.Fields["description"].(string),
		Price:       price,
		Stock:       int(stock),
		Category:    doc.Fields["category"].(string),
		CreatedAt:   doc.Fields["createdAt"].(time.Time),
	}, nil
}

package services

import (
	"strconv"

	"adminpanel/internal/docstore"
	"adminpanel/internal/editor"
	"adminpanel/internal/listing"
	"adminpanel/internal/livesync"
	"adminpanel/internal/models"
)

// Entity describes one record type to the generic services: where it is
// stored, how it is ordered and decoded, and how it is edited and listed.
type Entity[T any] struct {
	Name       string
	Collection string
	OrderBy    string
	Direction  docstore.Direction

	Decode  livesync.Decoder[T]
	Form    editor.Form
	Visible listing.Visible[T]

	ID    func(T) string
	Draft func(T) map[string]string
	// Preserved returns the non-editable fields carried into every update.
	Preserved func(T) map[string]any
	// CreatedField, when set, is stamped with the server time on create.
	CreatedField string
}

// Query is the live query the entity's collection is synchronized with.
func (e Entity[T]) Query() docstore.Query {
	return docstore.Query{Collection: e.Collection, OrderBy: e.OrderBy, Direction: e.Direction}
}

// Edit opens an editor seeded from rec.
func (e Entity[T]) Edit(rec T) *editor.Editor {
	var preserved map[string]any
	if e.Preserved != nil {
		preserved = e.Preserved(rec)
	}
	return e.Form.Edit(e.ID(rec), e.Draft(rec), preserved)
}

// ProductEntity lists products newest first.
var ProductEntity = Entity[models.Product]{
	Name:       "product",
	Collection: models.ProductsCollection,
	OrderBy:    "createdAt",
	Direction:  docstore.Desc,
	Decode:     models.ProductFromDocument,
	Form: editor.Form{Fields: []editor.FieldSpec{
		{Name: "name", Label: "Name", Kind: editor.Text},
		{Name: "description", Label: "Description", Kind: editor.Text},
		{Name: "price", Label: "Price", Kind: editor.Number},
		{Name: "stock", Label: "Stock", Kind: editor.Integer},
		{Name: "category", Label: "Category", Kind: editor.Text},
	}},
	Visible: func(p models.Product) []string {
		return []string{p.Name, p.Description, p.Category, editor.FormatNumber(p.Price), strconv.Itoa(p.Stock)}
	},
	ID: func(p models.Product) string { return p.ID },
	Draft: func(p models.Product) map[string]string {
		return map[string]string{
			"name":        p.Name,
			"description": p.Description,
			"price":       editor.FormatNumber(p.Price),
			"stock":       strconv.Itoa(p.Stock),
			"category":    p.Category,
		}
	},
	Preserved: func(p models.Product) map[string]any {
		return map[string]any{"createdAt": p.CreatedAt}
	},
	CreatedField: "createdAt",
}

// UserEntity lists users by name.
var UserEntity = Entity[models.User]{
	Name:       "user",
	Collection: models.UsersCollection,
	OrderBy:    "name",
	Direction:  docstore.Asc,
	Decode:     models.UserFromDocument,
	Form: editor.Form{Fields: []editor.FieldSpec{
		{Name: "name", Label: "Name", Kind: editor.Letters},
		{Name: "lastName", Label: "Last name", Kind: editor.Letters},
		{Name: "salary", Label: "Salary", Kind: editor.Number},
		{Name: "country", Label: "Country", Kind: editor.Letters},
		{Name: "city", Label: "City", Kind: editor.Letters},
	}},
	Visible: func(u models.User) []string {
		return []string{u.Name, u.LastName, editor.FormatNumber(u.Salary), u.Country, u.City}
	},
	ID: func(u models.User) string { return u.ID },
	Draft: func(u models.User) map[string]string {
		return map[string]string{
			"name":     u.Name,
			"lastName": u.LastName,
			"salary":   editor.FormatNumber(u.Salary),
			"country":  u.Country,
			"city":     u.City,
		}
	},
}

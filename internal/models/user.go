package models

import (
	"fmt"

	"adminpanel/internal/docstore"
	"adminpanel/internal/schema"
)

// UsersCollection is the document collection users live in.
const UsersCollection = "users"

// User represents a person managed from the panel. Not to be confused with
// Account, which is someone who can sign in.
type User struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	LastName string  `json:"lastName"`
	Salary   float64 `json:"salary"`
	Country  string  `json:"country"`
	City     string  `json:"city"`
}

// UserSchema is the declared shape of a user document.
var UserSchema = schema.Schema{Fields: []schema.Field{
	{Name: "name", Kind: schema.String, Required: true},
	{Name: "lastName", Kind: schema.String, Required: true},
	{Name: "salary", Kind: schema.Number, Required: true, NonNegative: true},
	{Name: "country", Kind: schema.String, Required: true},
	{Name: "city", Kind: schema.String, Required: true},
}}

// UserFromDocument checks doc against UserSchema and converts it.
func UserFromDocument(doc docstore.Document) (User, error) {
	if err := UserSchema.Check(doc.Fields); err != nil {
		return User{}, fmt.Errorf("user %s: %w", doc.ID, err)
	}
	salary, _ := schema.AsFloat(doc.Fields["salary"])
	return User{
		ID:       doc.ID,
		Name:     doc.Fields["name"].(string),
		LastName: doc.Fields["lastName"].(string),
		Salary:   salary,
		Country:  doc.Fields["country"].(string),
		City:     doc.Fields["city"].(string),
	}, nil
}

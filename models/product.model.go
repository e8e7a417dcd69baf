package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product categories. The catalog is a closed set of organic food lines.
const (
	CategoryMilk           = "milk"
	CategoryMeat           = "meat"
	CategoryOrganicOils    = "organic-oils"
	CategoryOrganicPowders = "organic-powders"
)

// ValidCategory reports whether c is one of the catalog categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryMilk, CategoryMeat, CategoryOrganicOils, CategoryOrganicPowders:
		return true
	}
	return false
}

// NutritionalInfo holds optional per-unit nutrition facts.
type NutritionalInfo struct {
	Calories      float64 `bson:"calories,omitempty" json:"calories,omitempty"`
	Protein       float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	Fat           float64 `bson:"fat,omitempty" json:"fat,omitempty"`
	Carbohydrates float64 `bson:"carbohydrates,omitempty" json:"carbohydrates,omitempty"`
	Fiber         float64 `bson:"fiber,omitempty" json:"fiber,omitempty"`
}

// Product is a catalog entry. Orders reference products by id and snapshot
// the price at order time; they never mutate the product.
type Product struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name                string             `bson:"name" json:"name"`
	Category            string             `bson:"category" json:"category"`
	Subcategory         string             `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Description         string             `bson:"description" json:"description"`
	Price               float64            `bson:"price" json:"price"`
	Unit                string             `bson:"unit" json:"unit"`
	AvailableQuantities []string           `bson:"available_quantities" json:"availableQuantities"`
	InStock             bool               `bson:"in_stock" json:"inStock"`
	Image               string             `bson:"image,omitempty" json:"image,omitempty"`
	NutritionalInfo     *NutritionalInfo   `bson:"nutritional_info,omitempty" json:"nutritionalInfo,omitempty"`
	CreatedAt           time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updatedAt"`
}

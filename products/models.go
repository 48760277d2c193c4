package products

import (
	"time"

	"github.com/Urientropy/centavo/resources"
)

type Product struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	Description       string             `json:"description"`
	SalePrice         resources.Decimal  `json:"sale_price"`
	Stock             resources.Decimal  `json:"stock"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	RecipeIngredients []RecipeIngredient `json:"recipe_ingredients"`
}

// RecipeIngredient is one line of a product recipe. On read ID is the raw
// material id; RawMaterial is only sent on write.
type RecipeIngredient struct {
	ID            int               `json:"id,omitempty"`
	RawMaterial   int               `json:"raw_material,omitempty"`
	Name          string            `json:"name,omitempty"`
	UnitOfMeasure string            `json:"unit_of_measure,omitempty"`
	Quantity      resources.Decimal `json:"quantity"`
}

// StockEvolution is the cumulative quantity produced per month.
type StockEvolution struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// ProductInput is the create payload. Updates are partial: send a map or a
// ProductPatch with only the fields to change.
type ProductInput struct {
	Name              string            `json:"name" validate:"required,max=100"`
	Category          string            `json:"category,omitempty" validate:"max=100"`
	Description       string            `json:"description,omitempty"`
	SalePrice         resources.Decimal `json:"sale_price" validate:"required"`
	RecipeIngredients []IngredientInput `json:"recipe_ingredients,omitempty" validate:"dive"`
}

type IngredientInput struct {
	RawMaterial int               `json:"raw_material" validate:"required,gt=0"`
	Quantity    resources.Decimal `json:"quantity" validate:"required"`
}

// ProductPatch is a partial update; nil fields are left unchanged.
type ProductPatch struct {
	Name              *string            `json:"name,omitempty"`
	Category          *string            `json:"category,omitempty"`
	Description       *string            `json:"description,omitempty"`
	SalePrice         *resources.Decimal `json:"sale_price,omitempty"`
	RecipeIngredients []IngredientInput  `json:"recipe_ingredients,omitempty"`
}

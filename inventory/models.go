package inventory

import (
	"time"

	"github.com/Urientropy/centavo/resources"
)

// RawMaterial is an ingredient bought in batches. TotalStock is the sum of
// the remaining quantity of its batches.
type RawMaterial struct {
	ID            int               `json:"id"`
	Name          string            `json:"name"`
	UnitOfMeasure string            `json:"unit_of_measure"`
	Description   string            `json:"description"`
	CreatedAt     time.Time         `json:"created_at"`
	TotalStock    resources.Decimal `json:"total_stock"`
}

type PurchaseBatch struct {
	ID                int               `json:"id"`
	RawMaterial       int               `json:"raw_material"`
	RawMaterialName   string            `json:"raw_material_name"`
	PurchaseDate      string            `json:"purchase_date"`
	Quantity          resources.Decimal `json:"quantity"`
	QuantityRemaining resources.Decimal `json:"quantity_remaining"`
	TotalCost         resources.Decimal `json:"total_cost"`
	CreatedAt         time.Time         `json:"created_at"`
}

// RawMaterialInput is the create and update payload of a raw material.
type RawMaterialInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	UnitOfMeasure string `json:"unit_of_measure" validate:"required,max=50"`
	Description   string `json:"description,omitempty"`
}

// PurchaseBatchInput is the create and update payload of a batch.
// PurchaseDate is YYYY-MM-DD.
type PurchaseBatchInput struct {
	RawMaterial  int               `json:"raw_material" validate:"required,gt=0"`
	PurchaseDate string            `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	Quantity     resources.Decimal `json:"quantity" validate:"required"`
	TotalCost    resources.Decimal `json:"total_cost" validate:"required"`
}

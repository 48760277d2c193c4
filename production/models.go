package production

import (
	"time"

	"github.com/Urientropy/centavo/resources"
)

// ProductionLog records one production run. TotalCost is the cost of the raw
// material consumed, first in first out.
type ProductionLog struct {
	ID               int               `json:"id"`
	Product          int               `json:"product"`
	ProductName      string            `json:"product_name"`
	QuantityProduced resources.Decimal `json:"quantity_produced"`
	TotalCost        resources.Decimal `json:"total_cost"`
	ProductionDate   time.Time         `json:"production_date"`
}

// Registration is the payload that records a production run.
type Registration struct {
	ProductID        int               `json:"product_id" validate:"required,gt=0"`
	QuantityProduced resources.Decimal `json:"quantity_produced" validate:"required"`
}

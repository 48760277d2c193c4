package production

import (
	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/resources"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrorCodeInsufficientStock marks a registration rejected for lack of raw
// material.
const ErrorCodeInsufficientStock = "INSUFFICIENT_STOCK"

// StockShortage describes the raw material that blocked a registration.
type StockShortage struct {
	Detail            string
	MaterialID        int
	MaterialName      string
	QuantityRequired  resources.Decimal
	QuantityAvailable resources.Decimal
}

// AsStockShortage reports whether err is an insufficient stock rejection and
// returns its details.
func AsStockShortage(err error) (*StockShortage, bool) {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || !gjson.ValidBytes(apiErr.Body) {
		return nil, false
	}

	body := gjson.ParseBytes(apiErr.Body)
	if body.Get("error_code").String() != ErrorCodeInsufficientStock {
		return nil, false
	}
	return &StockShortage{
		Detail:            body.Get("detail").String(),
		MaterialID:        int(body.Get("missing_raw_material.id").Int()),
		MaterialName:      body.Get("missing_raw_material.name").String(),
		QuantityRequired:  resources.Decimal(body.Get("quantity_required").String()),
		QuantityAvailable: resources.Decimal(body.Get("quantity_available").String()),
	}, true
}

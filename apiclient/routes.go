package apiclient

import (
	"fmt"
	"strings"
)

// Endpoint path constants, relative to the API base URL.
const (
	// Auth endpoints. A 401 from any of these never triggers a refresh.
	PathLogin    = "/auth/login/"
	PathRegister = "/auth/register/"
	PathRefresh  = "/auth/login/refresh/"
	PathLogout   = "/auth/logout/"

	// Inventory
	PathRawMaterials     = "/inventory/raw-materials/"
	PathRawMaterialUnits = "/inventory/raw-materials/units/"
	PathPurchaseBatches  = "/inventory/purchase-batches/"

	// Products
	PathProducts          = "/products/"
	PathProductCategories = "/products/categories/"

	// Production
	PathProductionLogs = "/production-logs/"

	// Finance
	PathIncomes  = "/finance/incomes/"
	PathExpenses = "/finance/expenses/"
)

// AuthPaths lists the authentication endpoints.
var AuthPaths = []string{PathLogin, PathRegister, PathRefresh, PathLogout}

// DetailPath returns the path of a single item inside a collection.
func DetailPath(collection string, id int) string {
	return fmt.Sprintf("%s%d/", ensureTrailingSlash(collection), id)
}

// ActionPath returns the path of a detail route action such as stock_evolution.
func ActionPath(collection string, id int, action string) string {
	return DetailPath(collection, id) + strings.Trim(action, "/") + "/"
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

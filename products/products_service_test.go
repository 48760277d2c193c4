package products_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/Urientropy/centavo/internal/apitest"
	"github.com/Urientropy/centavo/products"
	"github.com/Urientropy/centavo/resources"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server  *apitest.Server
	service *products.Service
	bread   int
	cake    int
	flour   int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	srv := apitest.NewServer(t)
	flour := srv.Seed(apitest.RawMaterials, apitest.Item{"name": "Flour", "unit_of_measure": "kg"})[0]
	srv.Seed(apitest.PurchaseBatches, apitest.Item{"raw_material": flour, "purchase_date": "2025-01-01", "quantity": "20", "total_cost": "40"})
	ids := srv.Seed(apitest.Products,
		apitest.Item{
			"name":               "Bread",
			"category":           "Bakery",
			"sale_price":         "3.50",
			"recipe_ingredients": []any{map[string]any{"raw_material": flour, "quantity": "1"}},
		},
		apitest.Item{"name": "Cake", "category": "bakery", "sale_price": "12"},
		apitest.Item{"name": "Coffee", "category": "Drinks", "sale_price": "2"},
	)
	svc := srv.Login(t)

	service, err := products.NewService(svc.Client(), resources.WithValidator(svc.Validator().Validate))
	require.NoError(t, err)
	return &testFixture{server: srv, service: service, bread: ids[0], cake: ids[1], flour: flour}
}

func TestFetchProducts(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.FetchProducts(ctx, 1))
	state := f.service.Products.State()
	require.Len(t, state.Items, 3)

	bread := state.Items[0]
	require.Equal(t, "Bread", bread.Name)
	require.Equal(t, resources.Decimal("3.50"), bread.SalePrice)
	require.Equal(t, resources.Decimal("0.00"), bread.Stock)
	require.Len(t, bread.RecipeIngredients, 1)
	require.Equal(t, f.flour, bread.RecipeIngredients[0].ID)
	require.Equal(t, "Flour", bread.RecipeIngredients[0].Name)
	require.Equal(t, "kg", bread.RecipeIngredients[0].UnitOfMeasure)

	require.NoError(t, f.service.SetCategoryFilter(ctx, "BAKERY"))
	require.Len(t, f.service.Products.State().Items, 2)

	require.NoError(t, f.service.SetCategoryFilter(ctx, products.AllCategories))
	require.Len(t, f.service.Products.State().Items, 3)

	require.NoError(t, f.service.FetchProducts(ctx, 1, "cof"))
	require.Len(t, f.service.Products.State().Items, 1)
}

func TestFetchCategories(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.Equal(t, []string{"Bakery", "Drinks", "bakery"}, f.service.FetchCategories(ctx))
	f.service.FetchCategories(ctx)
	require.Equal(t, 1, f.server.Hits(http.MethodGet, "/products/categories/"))
}

func TestCreateProduct(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateProduct(ctx, products.ProductInput{Name: "Tea"})
	require.Error(t, err)

	created, err := f.service.CreateProduct(ctx, products.ProductInput{
		Name:      "Muffin",
		Category:  "Bakery",
		SalePrice: resources.NewDecimal(2.25),
		RecipeIngredients: []products.IngredientInput{
			{RawMaterial: f.flour, Quantity: "0.25"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, resources.Decimal("2.25"), created.SalePrice)
	require.Equal(t, resources.Decimal("0.25"), created.RecipeIngredients[0].Quantity)
	require.Equal(t, 4, f.service.Products.State().Pagination.Count)
}

func TestUpdateProductContexts(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.FetchProducts(ctx, 1))
	f.server.ResetHits()

	price := resources.NewDecimal(4)
	updated, err := f.service.UpdateProduct(ctx, f.bread, products.ProductPatch{SalePrice: &price}, products.ContextList)
	require.NoError(t, err)
	require.Equal(t, price, updated.SalePrice)
	require.Equal(t, 1, f.server.Hits(http.MethodPatch, "/products/1/"))
	require.Equal(t, 1, f.server.Hits(http.MethodGet, apitest.Products))
	require.Equal(t, price, f.service.Products.State().Items[0].SalePrice)

	_, err = f.service.FetchProduct(ctx, f.cake)
	require.NoError(t, err)
	f.server.ResetHits()

	updated, err = f.service.UpdateProduct(ctx, f.cake, map[string]any{"description": "chocolate"}, products.ContextDetail)
	require.NoError(t, err)
	require.Equal(t, "chocolate", updated.Description)
	require.Equal(t, "chocolate", f.service.Products.Detail().Description)
	require.Zero(t, f.server.Hits(http.MethodGet, apitest.Products))
	require.Equal(t, 1, f.server.Hits(http.MethodGet, "/products/2/"))
}

func TestDeleteProduct(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.FetchProducts(ctx, 1))
	require.NoError(t, f.service.DeleteProduct(ctx, f.cake))
	require.Len(t, f.service.Products.State().Items, 2)
}

func TestFetchStockEvolution(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.server.Seed(apitest.ProductionLogs,
		apitest.Item{"product_id": f.bread, "quantity_produced": "2", "production_date": "2025-01-05T10:00:00Z"},
		apitest.Item{"product_id": f.bread, "quantity_produced": "1", "production_date": "2025-01-20T10:00:00Z"},
		apitest.Item{"product_id": f.bread, "quantity_produced": "4", "production_date": "2025-03-01T10:00:00Z"},
	)

	evolution := f.service.FetchStockEvolution(ctx, f.bread)
	require.NotNil(t, evolution)
	require.Equal(t, []string{"Jan 2025", "Mar 2025"}, evolution.Labels)
	require.Equal(t, []float64{3, 7}, evolution.Data)
	require.Equal(t, evolution, f.service.StockEvolution())

	product, err := f.service.FetchProduct(ctx, f.bread)
	require.NoError(t, err)
	require.Equal(t, 7.0, product.Stock.Float64())

	// A failure leaves no evolution and no store error.
	require.Nil(t, f.service.FetchStockEvolution(ctx, 99))
	require.Nil(t, f.service.StockEvolution())
	require.NoError(t, f.service.Products.State().Err)

	f.service.FetchStockEvolution(ctx, f.bread)
	f.service.ClearDetail()
	require.Nil(t, f.service.StockEvolution())
	require.Nil(t, f.service.Products.Detail())
}

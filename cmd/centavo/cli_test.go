package main

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/Urientropy/centavo/internal/apitest"
	"github.com/Urientropy/centavo/internal/config"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server *apitest.Server
	cfg    config.Config
}

// setupTestFixture points the CLI at a fake API and keeps the session in a
// file, so consecutive commands behave like separate invocations.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	srv := apitest.NewServer(t)
	srv.AddUser(apitest.Email, apitest.Password, apitest.FirstName)

	t.Setenv("API_BASE_URL", srv.BaseURL())
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv(passwordEnv, "")
	cfg, err := config.New()
	require.NoError(t, err)
	return &testFixture{server: srv, cfg: cfg}
}

func (f *testFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	c := newCLI(f.cfg, &out)
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.run(t, "login", "--email", apitest.Email, "--password", apitest.Password)
	require.NoError(t, err)
}

func TestRootShowsBannerAndHelp(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t)
	require.NoError(t, err)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "materials")
}

func TestLoginPersistsSession(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "login", "--email", apitest.Email, "--password", apitest.Password)
	require.NoError(t, err)
	require.Contains(t, out, apitest.Email)

	out, err = f.run(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, apitest.FirstName)
	require.Contains(t, out, "valid")
}

func TestLoginPasswordFromEnvironment(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv(passwordEnv, apitest.Password)

	_, err := f.run(t, "login", "--email", apitest.Email)
	require.NoError(t, err)
}

func TestLoginRejected(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "login", "--email", apitest.Email, "--password", "wrong-password")
	require.Error(t, err)
	require.NotEmpty(t, describeError(err))

	out, err := f.run(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in.")
}

func TestIncomesListAndCreate(t *testing.T) {
	f := setupTestFixture(t)
	f.server.Seed(apitest.Incomes,
		apitest.Item{"description": "market stall", "amount": "120.00", "date": "2025-03-01"},
		apitest.Item{"description": "catering", "amount": "300.00", "date": "2025-03-02"},
	)
	f.login(t)

	out, err := f.run(t, "incomes", "list")
	require.NoError(t, err)
	require.Contains(t, out, "market stall")
	require.Contains(t, out, "catering")
	require.Contains(t, out, "page 1 of 1")

	out, err = f.run(t, "incomes", "create", "--description", "wedding", "--amount", "950.00", "--date", "2025-03-03")
	require.NoError(t, err)
	require.Contains(t, out, "wedding")
	require.Len(t, f.server.Items(apitest.Incomes), 3)

	out, err = f.run(t, "incomes", "list", "--search", "wed")
	require.NoError(t, err)
	require.Contains(t, out, "wedding")
	require.NotContains(t, out, "catering")
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.server.ResetHits()

	_, err := f.run(t, "expenses", "create", "--description", "flour", "--date", "2025-03-03")
	require.Error(t, err)
	require.Contains(t, describeError(err), "amount")
	require.Equal(t, 0, f.server.Hits("POST", apitest.Expenses))
}

func TestDeleteExpense(t *testing.T) {
	f := setupTestFixture(t)
	ids := f.server.Seed(apitest.Expenses, apitest.Item{"description": "rent", "amount": "500.00", "date": "2025-03-01"})
	f.login(t)

	_, err := f.run(t, "expenses", "delete", "abc")
	require.Error(t, err)

	_, err = f.run(t, "expenses", "delete", itoa(ids[0]))
	require.NoError(t, err)
	require.Empty(t, f.server.Items(apitest.Expenses))
}

func TestMaterialsAndBatches(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	_, err := f.run(t, "materials", "create", "--name", "Flour", "--unit", "kg")
	require.NoError(t, err)
	_, err = f.run(t, "materials", "create", "--name", "Milk", "--unit", "l")
	require.NoError(t, err)

	out, err := f.run(t, "materials", "list", "--unit", "kg")
	require.NoError(t, err)
	require.Contains(t, out, "Flour")
	require.NotContains(t, out, "Milk")

	out, err = f.run(t, "materials", "units")
	require.NoError(t, err)
	require.Contains(t, out, "kg")
	require.Contains(t, out, "l")

	flour := 0
	for _, m := range f.server.Items(apitest.RawMaterials) {
		if m["name"] == "Flour" {
			flour = toID(m["id"])
		}
	}
	require.NotZero(t, flour)

	out, err = f.run(t, "batches", "create", "--material", itoa(flour), "--date", "2025-01-01", "--quantity", "4", "--cost", "4")
	require.NoError(t, err)
	require.Contains(t, out, "stock is now")

	out, err = f.run(t, "batches", "list", itoa(flour))
	require.NoError(t, err)
	require.Contains(t, out, "2025-01-01")
}

func TestProductionShortage(t *testing.T) {
	f := setupTestFixture(t)
	flour := f.server.Seed(apitest.RawMaterials, apitest.Item{"name": "Flour", "unit_of_measure": "kg"})[0]
	f.server.Seed(apitest.PurchaseBatches,
		apitest.Item{"raw_material": flour, "purchase_date": "2025-01-01", "quantity": "4", "total_cost": "4"},
	)
	bread := f.server.Seed(apitest.Products, apitest.Item{
		"name":               "Bread",
		"category":           "Bakery",
		"sale_price":         "3",
		"recipe_ingredients": []any{map[string]any{"raw_material": flour, "quantity": "2"}},
	})[0]
	f.login(t)

	out, err := f.run(t, "production", "register", "--product", itoa(bread), "--quantity", "1")
	require.NoError(t, err)
	require.Contains(t, out, "Bread")

	_, err = f.run(t, "production", "register", "--product", itoa(bread), "--quantity", "5")
	require.Error(t, err)
	require.Contains(t, describeError(err), "required")

	out, err = f.run(t, "products", "show", itoa(bread))
	require.NoError(t, err)
	require.Contains(t, out, "Bakery")
	require.Contains(t, out, "Flour")

	out, err = f.run(t, "products", "categories")
	require.NoError(t, err)
	require.Contains(t, out, "Bakery")
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	out, err := f.run(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Session ended.")

	out, err = f.run(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in.")
}

func TestVerboseTracesRequests(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	out, err := f.run(t, "--verbose", "products", "list")
	require.NoError(t, err)
	require.Contains(t, out, apitest.Products)
	require.Contains(t, out, "200")
}

func itoa(id int) string {
	return strconv.Itoa(id)
}

func toID(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func TestProductsUpdateSendsOnlyChangedFields(t *testing.T) {
	f := setupTestFixture(t)
	bread := f.server.Seed(apitest.Products, apitest.Item{"name": "Bread", "category": "Bakery", "sale_price": "3"})[0]
	f.login(t)

	out, err := f.run(t, "products", "update", itoa(bread), "--price", "3.50")
	require.NoError(t, err)
	require.Contains(t, out, "Bread (Bakery), price 3.50")
}

func TestListWithoutSessionSuggestsLogin(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "incomes", "list")
	require.Error(t, err)
	require.Contains(t, describeError(err), "centavo login")
}

package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Collection paths, relative to Prefix.
const (
	RawMaterials    = "/inventory/raw-materials/"
	PurchaseBatches = "/inventory/purchase-batches/"
	Products        = "/products/"
	ProductionLogs  = "/production-logs/"
	Incomes         = "/finance/incomes/"
	Expenses        = "/finance/expenses/"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+Prefix+"/auth/login/{$}", s.handleLogin)
	mux.HandleFunc("POST "+Prefix+"/auth/register/{$}", s.handleRegister)
	mux.HandleFunc("POST "+Prefix+"/auth/login/refresh/{$}", s.handleRefresh)
	mux.HandleFunc("POST "+Prefix+"/auth/logout/{$}", s.authenticated(s.handleLogout))

	s.mountCollection(mux, &collection{
		path:     RawMaterials,
		required: []string{"name", "unit_of_measure"},
		search:   []string{"name", "description"},
		filters:  map[string]string{"unit_of_measure": "unit_of_measure"},
		ordering: "name",
		prepare:  stamp,
		present:  presentRawMaterial,
		removed: func(s *Server, it Item) {
			batches := s.collections[PurchaseBatches]
			kept := batches.items[:0]
			for _, b := range batches.items {
				if toInt(b["raw_material"]) != itemID(it) {
					kept = append(kept, b)
				}
			}
			batches.items = kept
		},
	})
	s.mountCollection(mux, &collection{
		path:     PurchaseBatches,
		required: []string{"raw_material", "purchase_date", "quantity", "total_cost"},
		search:   []string{"raw_material_name"},
		filters:  map[string]string{"material_id": "raw_material"},
		ordering: "-purchase_date",
		prepare:  preparePurchaseBatch,
		present:  presentPurchaseBatch,
	})
	s.mountCollection(mux, &collection{
		path:     Products,
		required: []string{"name", "sale_price"},
		search:   []string{"name", "description", "category"},
		filters:  map[string]string{"category": "category"},
		ordering: "name",
		prepare:  prepareProduct,
		present:  presentProduct,
	})
	s.mountCollection(mux, &collection{
		path:     ProductionLogs,
		required: []string{"product_id", "quantity_produced"},
		search:   []string{"product_name"},
		ordering: "-production_date",
		readOnly: true,
		prepare:  prepareProduction,
		present:  presentProductionLog,
	})
	for _, path := range []string{Incomes, Expenses} {
		s.mountCollection(mux, &collection{
			path:     path,
			required: []string{"description", "amount", "date"},
			search:   []string{"description"},
			ordering: "-date",
			prepare:  stamp,
		})
	}

	mux.HandleFunc("GET "+Prefix+RawMaterials+"units/{$}", s.authenticated(s.handleUnits))
	mux.HandleFunc("GET "+Prefix+Products+"categories/{$}", s.authenticated(s.handleCategories))
	mux.HandleFunc("GET "+Prefix+Products+"{id}/stock_evolution/{$}", s.authenticated(s.handleStockEvolution))
}

func stamp(_ *Server, it Item, creating bool) any {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if creating {
		if _, ok := it["created_at"]; !ok {
			it["created_at"] = now
		}
	}
	it["updated_at"] = now
	return nil
}

func presentRawMaterial(s *Server, it Item) Item {
	total := 0.0
	for _, b := range s.collections[PurchaseBatches].items {
		if toInt(b["raw_material"]) == itemID(it) {
			total += toFloat(b["quantity_remaining"])
		}
	}
	it["total_stock"] = decimal(total)
	delete(it, "updated_at")
	return it
}

func preparePurchaseBatch(s *Server, it Item, creating bool) any {
	if _, ok := s.find(RawMaterials, toInt(it["raw_material"])); !ok {
		return map[string][]string{"raw_material": {"La materia prima especificada no existe o no pertenece a tu empresa."}}
	}
	if toFloat(it["quantity"]) <= 0 {
		return map[string][]string{"quantity": {"La cantidad debe ser un número válido."}}
	}
	it["quantity"] = decimal(toFloat(it["quantity"]))
	it["total_cost"] = decimal(toFloat(it["total_cost"]))
	if creating {
		if _, ok := it["quantity_remaining"]; !ok {
			it["quantity_remaining"] = it["quantity"]
		}
	}
	return stamp(s, it, creating)
}

func presentPurchaseBatch(s *Server, it Item) Item {
	if material, ok := s.find(RawMaterials, toInt(it["raw_material"])); ok {
		it["raw_material_name"] = material["name"]
	}
	delete(it, "updated_at")
	return it
}

func prepareProduct(s *Server, it Item, creating bool) any {
	if toFloat(it["sale_price"]) < 0 {
		return map[string][]string{"sale_price": {"El precio de venta no puede ser negativo."}}
	}
	it["sale_price"] = decimal(toFloat(it["sale_price"]))
	if creating {
		if _, ok := it["stock"]; !ok {
			it["stock"] = "0.00"
		}
	}
	if _, ok := it["category"]; !ok {
		it["category"] = ""
	}
	return stamp(s, it, creating)
}

// presentProduct expands recipe ingredients written as {raw_material,
// quantity} into the read shape.
func presentProduct(s *Server, it Item) Item {
	raw, _ := it["recipe_ingredients"].([]any)
	ingredients := make([]any, 0, len(raw))
	for _, r := range raw {
		in, ok := r.(map[string]any)
		if !ok {
			continue
		}
		materialID := toInt(in["raw_material"])
		if materialID == 0 {
			materialID = toInt(in["id"])
		}
		out := map[string]any{"id": materialID, "quantity": decimal(toFloat(in["quantity"]))}
		if material, ok := s.find(RawMaterials, materialID); ok {
			out["name"] = material["name"]
			out["unit_of_measure"] = material["unit_of_measure"]
		}
		ingredients = append(ingredients, out)
	}
	it["recipe_ingredients"] = ingredients
	return it
}

// prepareProduction consumes purchase batches first in, first out and
// accumulates the cost, as the server's production service does.
func prepareProduction(s *Server, it Item, creating bool) any {
	if !creating {
		return nil
	}
	product, ok := s.find(Products, toInt(it["product_id"]))
	if !ok {
		return map[string]any{"detail": "No Product matches the given query."}
	}
	quantity := toFloat(it["quantity_produced"])
	if quantity <= 0 {
		return map[string][]string{"quantity_produced": {"Ensure this value is greater than 0."}}
	}

	recipe, _ := product["recipe_ingredients"].([]any)
	if len(recipe) == 0 {
		return map[string]any{"detail": fmt.Sprintf("El producto '%v' no tiene una receta definida y no puede ser producido.", product["name"])}
	}

	type need struct {
		materialID int
		quantity   float64
	}
	var needs []need
	for _, r := range recipe {
		in, _ := r.(map[string]any)
		id := toInt(in["raw_material"])
		if id == 0 {
			id = toInt(in["id"])
		}
		needs = append(needs, need{materialID: id, quantity: toFloat(in["quantity"]) * quantity})
	}

	batches := s.collections[PurchaseBatches]
	for _, n := range needs {
		available := 0.0
		for _, b := range batches.items {
			if toInt(b["raw_material"]) == n.materialID {
				available += toFloat(b["quantity_remaining"])
			}
		}
		if available < n.quantity {
			material, _ := s.find(RawMaterials, n.materialID)
			return map[string]any{
				"error_code":           "INSUFFICIENT_STOCK",
				"detail":               fmt.Sprintf("No hay suficiente stock para la materia prima '%v'.", material["name"]),
				"missing_raw_material": map[string]any{"id": n.materialID, "name": material["name"]},
				"quantity_required":    decimal(n.quantity),
				"quantity_available":   decimal(available),
			}
		}
	}

	fifo := make([]Item, 0, len(batches.items))
	fifo = append(fifo, batches.items...)
	sort.SliceStable(fifo, func(i, j int) bool {
		return fmt.Sprint(fifo[i]["purchase_date"]) < fmt.Sprint(fifo[j]["purchase_date"])
	})

	cost := 0.0
	for _, n := range needs {
		remaining := n.quantity
		for _, b := range fifo {
			if remaining <= 0 {
				break
			}
			left := toFloat(b["quantity_remaining"])
			if toInt(b["raw_material"]) != n.materialID || left <= 0 {
				continue
			}
			perUnit := 0.0
			if q := toFloat(b["quantity"]); q > 0 {
				perUnit = toFloat(b["total_cost"]) / q
			}
			take := min(remaining, left)
			b["quantity_remaining"] = decimal(left - take)
			cost += take * perUnit
			remaining -= take
		}
	}

	product["stock"] = decimal(toFloat(product["stock"]) + quantity)

	delete(it, "product_id")
	it["product"] = itemID(product)
	it["quantity_produced"] = decimal(quantity)
	it["total_cost"] = decimal(cost)
	if _, ok := it["production_date"]; !ok {
		it["production_date"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return nil
}

func presentProductionLog(s *Server, it Item) Item {
	if product, ok := s.find(Products, toInt(it["product"])); ok {
		it["product_name"] = product["name"]
	}
	return it
}

func (s *Server) handleUnits(w http.ResponseWriter, _ *http.Request, _ *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, distinct(s.collections[RawMaterials].items, "unit_of_measure"))
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request, _ *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, distinct(s.collections[Products].items, "category"))
}

func (s *Server) handleStockEvolution(w http.ResponseWriter, r *http.Request, _ *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := strconv.Atoi(r.PathValue("id"))
	if _, ok := s.find(Products, id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No Product matches the given query."})
		return
	}

	monthly := map[time.Time]float64{}
	for _, entry := range s.collections[ProductionLogs].items {
		if toInt(entry["product"]) != id {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, fmt.Sprint(entry["production_date"]))
		if err != nil {
			continue
		}
		month := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthly[month] += toFloat(entry["quantity_produced"])
	}

	months := make([]time.Time, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	labels := make([]string, 0, len(months))
	data := make([]float64, 0, len(months))
	cumulative := 0.0
	for _, m := range months {
		cumulative += monthly[m]
		labels = append(labels, m.Format("Jan 2006"))
		data = append(data, cumulative)
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": labels, "data": data})
}

// find looks an item up by id. Callers hold s.mu.
func (s *Server) find(path string, id int) (Item, bool) {
	for _, it := range s.collections[path].items {
		if itemID(it) == id {
			return it, true
		}
	}
	return nil, false
}

func distinct(items []Item, field string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range items {
		v, _ := it[field].(string)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	}
	return 0
}

func toFloat(v any) float64 {
	f, _ := number(v)
	return f
}

func decimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

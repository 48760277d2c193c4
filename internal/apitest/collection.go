package apitest

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Item is a stored record as the server serializes it.
type Item = map[string]any

type collection struct {
	path     string
	required []string
	search   []string
	filters  map[string]string // query parameter -> item field
	ordering string
	readOnly bool

	// prepare fills server side fields on create and update. A non nil
	// result is sent back as a 400 body.
	prepare func(s *Server, item Item, creating bool) any
	// present adds computed fields to a copy of the item.
	present func(s *Server, item Item) Item
	// removed runs after an item is deleted.
	removed func(s *Server, item Item)

	items  []Item
	nextID int
}

// Seed inserts items into the collection mounted at path, bypassing
// validation, and returns their ids.
func (s *Server) Seed(path string, items ...Item) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[path]
	if !ok {
		panic(fmt.Sprintf("apitest.Seed: unknown collection %s", path))
	}
	ids := make([]int, 0, len(items))
	for _, it := range items {
		stored := cloneItem(it)
		if c.prepare != nil {
			c.prepare(s, stored, true)
		}
		c.nextID++
		stored["id"] = c.nextID
		c.items = append(c.items, stored)
		ids = append(ids, c.nextID)
	}
	return ids
}

// Items returns a copy of the stored items of a collection.
func (s *Server) Items(path string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collections[path]
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, s.presentLocked(c, it))
	}
	return out
}

func (s *Server) mountCollection(mux *http.ServeMux, c *collection) {
	s.collections[c.path] = c
	base := Prefix + c.path

	mux.HandleFunc("GET "+base+"{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.list(w, r, c)
	}))
	mux.HandleFunc("POST "+base+"{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.create(w, r, c)
	}))
	mux.HandleFunc("GET "+base+"{id}/{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.detail(w, r, c)
	}))
	if c.readOnly {
		return
	}
	mux.HandleFunc("PUT "+base+"{id}/{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.update(w, r, c, false)
	}))
	mux.HandleFunc("PATCH "+base+"{id}/{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.update(w, r, c, true)
	}))
	mux.HandleFunc("DELETE "+base+"{id}/{$}", s.authenticated(func(w http.ResponseWriter, r *http.Request, _ *User) {
		s.remove(w, r, c)
	}))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, c *collection) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Invalid page."})
			return
		}
		page = p
	}

	s.mu.Lock()
	delay := s.listDelay
	matched := s.query(c, q)
	s.mu.Unlock()

	count := len(matched)
	totalPages := int(math.Max(1, math.Ceil(float64(count)/PageSize)))
	if page > totalPages {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Invalid page."})
		return
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, count)
	results := matched[start:end]

	if delay != nil {
		time.Sleep(delay(c.path, page))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    count,
		"next":     pageLink(r, page+1, page < totalPages),
		"previous": pageLink(r, page-1, page > 1),
		"results":  results,
	})
}

// query filters, searches and orders the collection. Callers hold s.mu.
func (s *Server) query(c *collection, q url.Values) []Item {
	term := strings.ToLower(strings.TrimSpace(q.Get("search")))

	var out []Item
	for _, it := range c.items {
		presented := s.presentLocked(c, it)
		if !matchesFilters(c, presented, q) {
			continue
		}
		if term != "" && !matchesSearch(c, presented, term) {
			continue
		}
		out = append(out, presented)
	}

	ordering := q.Get("ordering")
	if ordering == "" {
		ordering = c.ordering
	}
	if ordering != "" {
		field, desc := strings.TrimPrefix(ordering, "-"), strings.HasPrefix(ordering, "-")
		sort.SliceStable(out, func(i, j int) bool {
			cmp := compareValues(out[i][field], out[j][field])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if out == nil {
		out = []Item{}
	}
	return out
}

func matchesFilters(c *collection, it Item, q url.Values) bool {
	for param, field := range c.filters {
		want := q.Get(param)
		if want == "" {
			continue
		}
		if !strings.EqualFold(fmt.Sprint(it[field]), want) {
			return false
		}
	}
	return true
}

func matchesSearch(c *collection, it Item, term string) bool {
	for _, field := range c.search {
		if strings.Contains(strings.ToLower(fmt.Sprint(it[field])), term) {
			return true
		}
	}
	return false
}

func compareValues(a, b any) int {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func pageLink(r *http.Request, page int, ok bool) any {
	if !ok {
		return nil
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("http://%s%s?%s", r.Host, r.URL.Path, q.Encode())
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request, c *collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := findItem(c, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No " + strings.Trim(c.path, "/") + " matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, s.presentLocked(c, c.items[idx]))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, c *collection) {
	var payload Item
	if err := readJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	var missing []string
	for _, f := range c.required {
		if v, ok := payload[f]; !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors(missing...))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(payload, "id")
	if c.prepare != nil {
		if errs := c.prepare(s, payload, true); errs != nil {
			writeJSON(w, http.StatusBadRequest, errs)
			return
		}
	}
	c.nextID++
	payload["id"] = c.nextID
	c.items = append(c.items, payload)
	writeJSON(w, http.StatusCreated, s.presentLocked(c, payload))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, c *collection, partial bool) {
	var payload Item
	if err := readJSON(r, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	if !partial {
		var missing []string
		for _, f := range c.required {
			if v, ok := payload[f]; !ok || v == nil || v == "" {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, fieldErrors(missing...))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := findItem(c, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}

	updated := cloneItem(c.items[idx])
	for k, v := range payload {
		if k != "id" {
			updated[k] = v
		}
	}
	if c.prepare != nil {
		if errs := c.prepare(s, updated, false); errs != nil {
			writeJSON(w, http.StatusBadRequest, errs)
			return
		}
	}
	c.items[idx] = updated
	writeJSON(w, http.StatusOK, s.presentLocked(c, updated))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, c *collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := findItem(c, r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	removed := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	if c.removed != nil {
		c.removed(s, removed)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) presentLocked(c *collection, it Item) Item {
	out := cloneItem(it)
	if c.present != nil {
		out = c.present(s, out)
	}
	return out
}

func findItem(c *collection, rawID string) (int, bool) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return 0, false
	}
	for i, it := range c.items {
		if itemID(it) == id {
			return i, true
		}
	}
	return 0, false
}

func itemID(it Item) int {
	switch id := it["id"].(type) {
	case int:
		return id
	case float64:
		return int(id)
	}
	return 0
}

func cloneItem(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Package resources is the paginated list state shared by every entity
// type: list, detail, create, update and delete against one collection
// endpoint, with every successful mutation followed by a refetch so the list
// always mirrors the server.
package resources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/internal/config"
	clienterrors "github.com/Urientropy/centavo/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultFetchError  = "Could not load the list."
	defaultDetailError = "Could not load the selected item."
	defaultMutateError = "Network error or unexpected problem."
)

// Doer sends one API request. *apiclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request, out any) error
}

// Page is the paginated list body: {count, next, previous, results}.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type Pagination struct {
	Count      int
	Page       int
	TotalPages int
}

// ListState is a snapshot of a store.
type ListState[T any] struct {
	Items      []T
	Pagination Pagination
	Ordering   string
	SearchTerm string
	Filter     string
	IsLoading  bool
	Err        error
}

// StoreError is the message a store records when a request fails without a
// structured server answer.
type StoreError struct {
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Store holds the list state of one collection endpoint.
type Store[T any] struct {
	mu     sync.RWMutex
	client Doer
	path   string

	name            string
	pageSize        int
	filterParam     string
	defaultOrdering string
	updateMethod    string
	policy          RefetchPolicy
	validate        func(any) error
	fetchErrMsg     string
	detailErrMsg    string
	mutateErrMsg    string

	scope         url.Values
	state         ListState[T]
	detail        *T
	detailLoading bool
	seq           uint64
}

// Option defines a function type to modify a Store instance.
type Option func(*storeOptions)

type storeOptions struct {
	name            string
	pageSize        int
	filterParam     string
	defaultOrdering string
	updateMethod    string
	policy          RefetchPolicy
	validate        func(any) error
	fetchErrMsg     string
	detailErrMsg    string
	mutateErrMsg    string
	scope           url.Values
}

// WithName labels log lines of the store.
func WithName(name string) Option {
	return func(o *storeOptions) { o.name = name }
}

func WithPageSize(n int) Option {
	return func(o *storeOptions) { o.pageSize = n }
}

// WithFilter names the query parameter SetFilter writes, e.g. "category".
func WithFilter(param string) Option {
	return func(o *storeOptions) { o.filterParam = param }
}

// WithOrdering sets the initial ordering, e.g. "-date".
func WithOrdering(ordering string) Option {
	return func(o *storeOptions) { o.defaultOrdering = ordering }
}

// WithUpdateMethod selects PUT (the default) or PATCH for updates.
func WithUpdateMethod(method string) Option {
	return func(o *storeOptions) { o.updateMethod = method }
}

func WithRefetchPolicy(p RefetchPolicy) Option {
	return func(o *storeOptions) { o.policy = p }
}

// WithValidator checks create and update payloads before they are sent.
func WithValidator(validate func(any) error) Option {
	return func(o *storeOptions) { o.validate = validate }
}

// WithMessages overrides the generic error messages recorded in the state.
func WithMessages(fetch, detail, mutate string) Option {
	return func(o *storeOptions) {
		if fetch != "" {
			o.fetchErrMsg = fetch
		}
		if detail != "" {
			o.detailErrMsg = detail
		}
		if mutate != "" {
			o.mutateErrMsg = mutate
		}
	}
}

// WithScope adds a fixed query parameter to every list request, for nested
// lists such as the batches of one raw material.
func WithScope(key, value string) Option {
	return func(o *storeOptions) {
		if o.scope == nil {
			o.scope = url.Values{}
		}
		o.scope.Set(key, value)
	}
}

// NewStore creates a store for the collection at path.
func NewStore[T any](client Doer, path string, options ...Option) (*Store[T], error) {
	if client == nil {
		return nil, errors.New("[NewStore] client is required")
	}
	if path == "" {
		return nil, errors.New("[NewStore] path is required")
	}

	o := storeOptions{
		name:         path,
		pageSize:     config.DefaultPageSize,
		updateMethod: http.MethodPut,
		policy:       DefaultRefetchPolicy{},
		fetchErrMsg:  defaultFetchError,
		detailErrMsg: defaultDetailError,
		mutateErrMsg: defaultMutateError,
	}
	for _, opt := range options {
		opt(&o)
	}
	if o.updateMethod != http.MethodPut && o.updateMethod != http.MethodPatch {
		return nil, errors.Errorf("[NewStore] unsupported update method %q", o.updateMethod)
	}
	if o.pageSize <= 0 {
		return nil, errors.New("[NewStore] page size must be positive")
	}

	return &Store[T]{
		client:          client,
		path:            path,
		name:            o.name,
		pageSize:        o.pageSize,
		filterParam:     o.filterParam,
		defaultOrdering: o.defaultOrdering,
		updateMethod:    o.updateMethod,
		policy:          o.policy,
		validate:        o.validate,
		fetchErrMsg:     o.fetchErrMsg,
		detailErrMsg:    o.detailErrMsg,
		mutateErrMsg:    o.mutateErrMsg,
		scope:           o.scope,
		state: ListState[T]{
			Items:      []T{},
			Pagination: Pagination{Page: 1, TotalPages: 1},
			Ordering:   o.defaultOrdering,
		},
	}, nil
}

// State returns a copy of the list state.
func (s *Store[T]) State() ListState[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Items = append([]T(nil), s.state.Items...)
	return out
}

// Detail returns the item loaded by FetchDetail, or nil.
func (s *Store[T]) Detail() *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detail == nil {
		return nil
	}
	d := *s.detail
	return &d
}

func (s *Store[T]) IsLoadingDetail() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detailLoading
}

// FetchList loads a page. An optional search term replaces the stored one.
// A response that arrives after a newer fetch was dispatched is discarded.
func (s *Store[T]) FetchList(ctx context.Context, page int, search ...string) error {
	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	if len(search) > 0 {
		s.state.SearchTerm = search[0]
	}
	s.seq++
	seq := s.seq
	s.state.IsLoading = true
	s.state.Err = nil
	query := s.listQueryLocked(page)
	s.mu.Unlock()

	var resp Page[T]
	err := s.client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: s.path, Query: query}, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.Debug().Str("store", s.name).Uint64("seq", seq).Uint64("latest", s.seq).Msg("discarding stale list response")
		return nil
	}
	s.state.IsLoading = false

	if err != nil {
		log.Error().Err(err).Str("store", s.name).Int("page", page).Msg("list fetch failed")
		s.state.Err = &StoreError{Message: s.fetchErrMsg, Cause: err}
		s.state.Items = []T{}
		return err
	}

	if resp.Results == nil {
		resp.Results = []T{}
	}
	s.state.Items = resp.Results
	s.state.Pagination = Pagination{
		Count:      resp.Count,
		Page:       page,
		TotalPages: TotalPages(resp.Count, s.pageSize),
	}
	return nil
}

// Refresh reloads the current page.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.RLock()
	page := s.state.Pagination.Page
	s.mu.RUnlock()
	return s.FetchList(ctx, page)
}

func (s *Store[T]) listQueryLocked(page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if term := strings.TrimSpace(s.state.SearchTerm); term != "" {
		q.Set("search", term)
	}
	if s.state.Ordering != "" {
		q.Set("ordering", s.state.Ordering)
	}
	if s.filterParam != "" && s.state.Filter != "" {
		q.Set(s.filterParam, s.state.Filter)
	}
	for k, vs := range s.scope {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return q
}

// SetOrdering toggles column through ascending, descending and unordered,
// then reloads page 1.
func (s *Store[T]) SetOrdering(ctx context.Context, column string) error {
	s.mu.Lock()
	s.state.Ordering = NextOrdering(s.state.Ordering, column)
	s.mu.Unlock()
	return s.FetchList(ctx, 1)
}

// UseOrdering sets the ordering ("field", "-field" or "") without fetching.
func (s *Store[T]) UseOrdering(ordering string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Ordering = ordering
}

// UseFilter sets the filter value without fetching.
func (s *Store[T]) UseFilter(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filter = value
}

// ResetOrdering restores the initial ordering without fetching.
func (s *Store[T]) ResetOrdering() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Ordering = s.defaultOrdering
}

// SetSearchTerm stores the term and reloads page 1.
func (s *Store[T]) SetSearchTerm(ctx context.Context, term string) error {
	return s.FetchList(ctx, 1, term)
}

// SetFilter stores the filter value and reloads page 1. An empty value
// removes the filter.
func (s *Store[T]) SetFilter(ctx context.Context, value string) error {
	if s.filterParam == "" {
		return clienterrors.Wrapf(clienterrors.ErrUnsupported, "store %s has no filter", s.name)
	}
	s.mu.Lock()
	s.state.Filter = value
	s.mu.Unlock()
	return s.FetchList(ctx, 1)
}

// SetScope replaces a fixed query parameter. It does not fetch.
func (s *Store[T]) SetScope(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scope == nil {
		s.scope = url.Values{}
	}
	s.scope.Set(key, value)
}

// Reset empties the list and detail and restores the initial ordering.
// Responses of fetches still in flight are discarded.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = ListState[T]{
		Items:      []T{},
		Pagination: Pagination{Page: 1, TotalPages: 1},
		Ordering:   s.defaultOrdering,
	}
	s.detail = nil
}

// FetchDetail clears the current detail and loads item id. On failure the
// error is recorded and returned.
func (s *Store[T]) FetchDetail(ctx context.Context, id int) (*T, error) {
	s.mu.Lock()
	s.detail = nil
	s.detailLoading = true
	s.state.Err = nil
	s.mu.Unlock()

	var item T
	err := s.client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: apiclient.DetailPath(s.path, id)}, &item)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailLoading = false
	if err != nil {
		log.Error().Err(err).Str("store", s.name).Int("id", id).Msg("detail fetch failed")
		s.state.Err = &StoreError{Message: s.detailErrMsg, Cause: err}
		return nil, err
	}
	s.detail = &item
	out := item
	return &out, nil
}

// ClearDetail forgets the loaded detail and the recorded error.
func (s *Store[T]) ClearDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = nil
	s.state.Err = nil
}

// Create posts payload and reloads the page chosen by the refetch policy.
func (s *Store[T]) Create(ctx context.Context, payload any) (*T, error) {
	var created T
	req := apiclient.Request{Method: http.MethodPost, Path: s.path, Body: payload}
	if err := s.mutate(ctx, req, payload, &created); err != nil {
		return nil, err
	}
	s.refetchAfter(ctx, MutationCreate, 0)
	return &created, nil
}

// Update sends payload with the configured verb and reloads the list.
func (s *Store[T]) Update(ctx context.Context, id int, payload any) (*T, error) {
	updated, err := s.send(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	s.refetchAfter(ctx, MutationUpdate, 0)
	return updated, nil
}

// UpdateDetail is Update for a caller showing the detail: it reloads the
// detail instead of the list.
func (s *Store[T]) UpdateDetail(ctx context.Context, id int, payload any) (*T, error) {
	updated, err := s.send(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	if detail, err := s.FetchDetail(ctx, id); err == nil {
		return detail, nil
	}
	return updated, nil
}

func (s *Store[T]) send(ctx context.Context, id int, payload any) (*T, error) {
	var updated T
	req := apiclient.Request{Method: s.updateMethod, Path: apiclient.DetailPath(s.path, id), Body: payload}
	if err := s.mutate(ctx, req, payload, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes item id and reloads the current page, or the previous one
// if the deleted item was the last on its page.
func (s *Store[T]) Delete(ctx context.Context, id int) error {
	s.mu.RLock()
	itemsOnPage := len(s.state.Items)
	s.mu.RUnlock()

	req := apiclient.Request{Method: http.MethodDelete, Path: apiclient.DetailPath(s.path, id)}
	if err := s.mutate(ctx, req, nil, nil); err != nil {
		return err
	}
	s.refetchAfter(ctx, MutationDelete, itemsOnPage)
	return nil
}

// mutate validates and sends a mutating request. Failures are recorded in
// the state and returned unchanged.
func (s *Store[T]) mutate(ctx context.Context, req apiclient.Request, payload, out any) error {
	if s.validate != nil && payload != nil {
		if err := s.validate(payload); err != nil {
			s.recordError(err)
			return err
		}
	}

	err := s.client.Do(ctx, req, out)
	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("store", s.name).Str("method", req.Method).Str("path", req.Path).Msg("mutation failed")
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.HasBody() {
		s.recordError(apiErr)
	} else {
		s.recordError(&StoreError{Message: s.mutateErrMsg, Cause: err})
	}
	return err
}

func (s *Store[T]) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = err
}

// refetchAfter reloads the target page. A failed reload is recorded in the
// state by FetchList; the mutation itself already succeeded.
func (s *Store[T]) refetchAfter(ctx context.Context, m Mutation, itemsOnPage int) {
	s.mu.RLock()
	current := s.state.Pagination
	s.mu.RUnlock()

	page := s.policy.TargetPage(m, current, itemsOnPage)
	if err := s.FetchList(ctx, page); err != nil {
		log.Warn().Err(err).Str("store", s.name).Str("mutation", m.String()).Msg("refetch after mutation failed")
	}
}

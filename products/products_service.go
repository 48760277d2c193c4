// Package products manages the catalogue of sellable products, their
// recipes and their stock history.
package products

import (
	"context"
	"net/http"
	"sync"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/resources"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AllCategories is the pseudo category that clears the category filter.
const AllCategories = "All"

// UpdateContext tells UpdateProduct which view to reload afterwards.
type UpdateContext int

const (
	ContextList UpdateContext = iota
	ContextDetail
)

type Service struct {
	client   resources.Doer
	Products *resources.Store[Product]

	mu         sync.Mutex
	categories []string
	evolution  *StockEvolution
}

func NewService(client resources.Doer, options ...resources.Option) (*Service, error) {
	store, err := resources.NewStore[Product](client, apiclient.PathProducts, append([]resources.Option{
		resources.WithName("products"),
		resources.WithFilter("category"),
		resources.WithUpdateMethod(http.MethodPatch),
		resources.WithMessages("Could not load products.", "Could not load the selected product.", ""),
	}, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] products store")
	}
	return &Service{client: client, Products: store}, nil
}

func (s *Service) FetchProducts(ctx context.Context, page int, search ...string) error {
	return s.Products.FetchList(ctx, page, search...)
}

func (s *Service) SetOrdering(ctx context.Context, column string) error {
	return s.Products.SetOrdering(ctx, column)
}

// SetCategoryFilter filters by category, case-insensitively on the server.
// AllCategories or "" clears the filter.
func (s *Service) SetCategoryFilter(ctx context.Context, category string) error {
	if category == AllCategories {
		category = ""
	}
	return s.Products.SetFilter(ctx, category)
}

func (s *Service) FetchProduct(ctx context.Context, id int) (*Product, error) {
	return s.Products.FetchDetail(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	return s.Products.Create(ctx, in)
}

// UpdateProduct patches a product and reloads either the current list page
// or the product detail.
func (s *Service) UpdateProduct(ctx context.Context, id int, patch any, view UpdateContext) (*Product, error) {
	if view == ContextDetail {
		return s.Products.UpdateDetail(ctx, id, patch)
	}
	return s.Products.Update(ctx, id, patch)
}

func (s *Service) DeleteProduct(ctx context.Context, id int) error {
	return s.Products.Delete(ctx, id)
}

// FetchCategories returns the distinct product categories. The first
// non-empty answer is cached; a failed call yields an empty list.
func (s *Service) FetchCategories(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.categories) > 0 {
		return append([]string(nil), s.categories...)
	}

	var categories []string
	req := apiclient.Request{Method: http.MethodGet, Path: apiclient.PathProductCategories}
	if err := s.client.Do(ctx, req, &categories); err != nil {
		log.Error().Err(err).Msg("fetching product categories")
		return []string{}
	}
	s.categories = categories
	return append([]string{}, categories...)
}

// FetchStockEvolution loads the monthly production history of a product.
// A failure leaves the evolution nil and is not recorded as a store error.
func (s *Service) FetchStockEvolution(ctx context.Context, id int) *StockEvolution {
	s.mu.Lock()
	s.evolution = nil
	s.mu.Unlock()

	var evolution StockEvolution
	req := apiclient.Request{Method: http.MethodGet, Path: apiclient.ActionPath(apiclient.PathProducts, id, "stock_evolution")}
	if err := s.client.Do(ctx, req, &evolution); err != nil {
		log.Warn().Err(err).Int("product", id).Msg("fetching stock evolution")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evolution = &evolution
	out := evolution
	return &out
}

// StockEvolution returns the last loaded evolution, or nil.
func (s *Service) StockEvolution() *StockEvolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evolution == nil {
		return nil
	}
	out := *s.evolution
	return &out
}

// ClearDetail forgets the selected product and its stock evolution.
func (s *Service) ClearDetail() {
	s.Products.ClearDetail()
	s.mu.Lock()
	s.evolution = nil
	s.mu.Unlock()
}

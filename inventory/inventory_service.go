// Package inventory manages raw materials and the purchase batches that
// stock them.
package inventory

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/resources"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AllUnits is the pseudo unit that clears the unit of measure filter.
const AllUnits = "All"

const batchesScope = "material_id"

type Service struct {
	client    resources.Doer
	Materials *resources.Store[RawMaterial]
	Batches   *resources.Store[PurchaseBatch]

	mu    sync.Mutex
	units []string
}

// NewService builds the raw material and purchase batch stores. options
// apply to both stores after their defaults.
func NewService(client resources.Doer, options ...resources.Option) (*Service, error) {
	materials, err := resources.NewStore[RawMaterial](client, apiclient.PathRawMaterials, append([]resources.Option{
		resources.WithName("raw-materials"),
		resources.WithFilter("unit_of_measure"),
		resources.WithUpdateMethod(http.MethodPut),
		resources.WithMessages("Could not load raw materials.", "Could not load the selected raw material.", ""),
	}, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] raw materials store")
	}

	batches, err := resources.NewStore[PurchaseBatch](client, apiclient.PathPurchaseBatches, append([]resources.Option{
		resources.WithName("purchase-batches"),
		resources.WithOrdering("-purchase_date"),
		resources.WithUpdateMethod(http.MethodPut),
		resources.WithMessages("Could not load purchase batches.", "", ""),
	}, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] purchase batches store")
	}

	return &Service{client: client, Materials: materials, Batches: batches}, nil
}

func (s *Service) FetchRawMaterials(ctx context.Context, page int, search ...string) error {
	return s.Materials.FetchList(ctx, page, search...)
}

func (s *Service) SetOrdering(ctx context.Context, column string) error {
	return s.Materials.SetOrdering(ctx, column)
}

// SetUnitFilter filters the list by unit of measure. AllUnits or "" clears
// the filter.
func (s *Service) SetUnitFilter(ctx context.Context, unit string) error {
	if unit == AllUnits {
		unit = ""
	}
	return s.Materials.SetFilter(ctx, unit)
}

func (s *Service) FetchRawMaterial(ctx context.Context, id int) (*RawMaterial, error) {
	return s.Materials.FetchDetail(ctx, id)
}

func (s *Service) CreateRawMaterial(ctx context.Context, in RawMaterialInput) (*RawMaterial, error) {
	return s.Materials.Create(ctx, in)
}

func (s *Service) UpdateRawMaterial(ctx context.Context, id int, in RawMaterialInput) (*RawMaterial, error) {
	return s.Materials.Update(ctx, id, in)
}

func (s *Service) DeleteRawMaterial(ctx context.Context, id int) error {
	return s.Materials.Delete(ctx, id)
}

// FetchUnits returns the distinct units of measure in use. The first
// non-empty answer is cached; a failed call yields an empty list.
func (s *Service) FetchUnits(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.units) > 0 {
		return append([]string(nil), s.units...)
	}

	var units []string
	req := apiclient.Request{Method: http.MethodGet, Path: apiclient.PathRawMaterialUnits}
	if err := s.client.Do(ctx, req, &units); err != nil {
		log.Error().Err(err).Msg("fetching units of measure")
		return []string{}
	}
	s.units = units
	return append([]string{}, units...)
}

// FetchPurchaseBatches loads a page of the batches of one raw material.
func (s *Service) FetchPurchaseBatches(ctx context.Context, materialID, page int) error {
	s.Batches.SetScope(batchesScope, strconv.Itoa(materialID))
	return s.Batches.FetchList(ctx, page)
}

func (s *Service) SetBatchesOrdering(ctx context.Context, materialID int, column string) error {
	s.Batches.SetScope(batchesScope, strconv.Itoa(materialID))
	return s.Batches.SetOrdering(ctx, column)
}

// CreatePurchaseBatch adds a batch, then reloads the first page of the
// material's batches and the material itself for its new stock total.
func (s *Service) CreatePurchaseBatch(ctx context.Context, in PurchaseBatchInput) (*PurchaseBatch, error) {
	s.Batches.SetScope(batchesScope, strconv.Itoa(in.RawMaterial))
	batch, err := s.Batches.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.refreshMaterial(ctx, in.RawMaterial)
	return batch, nil
}

func (s *Service) UpdatePurchaseBatch(ctx context.Context, id int, in PurchaseBatchInput) (*PurchaseBatch, error) {
	s.Batches.SetScope(batchesScope, strconv.Itoa(in.RawMaterial))
	batch, err := s.Batches.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.refreshMaterial(ctx, in.RawMaterial)
	return batch, nil
}

func (s *Service) DeletePurchaseBatch(ctx context.Context, id, materialID int) error {
	s.Batches.SetScope(batchesScope, strconv.Itoa(materialID))
	if err := s.Batches.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshMaterial(ctx, materialID)
	return nil
}

func (s *Service) refreshMaterial(ctx context.Context, id int) {
	if _, err := s.Materials.FetchDetail(ctx, id); err != nil {
		log.Warn().Err(err).Int("raw_material", id).Msg("reloading raw material after batch change")
	}
}

// ClearDetail forgets the selected material and its batches.
func (s *Service) ClearDetail() {
	s.Materials.ClearDetail()
	s.Batches.Reset()
}

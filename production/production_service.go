// Package production records production runs, which turn raw material stock
// into product stock.
package production

import (
	"context"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/resources"
	"github.com/pkg/errors"
)

type Service struct {
	Logs *resources.Store[ProductionLog]
}

// NewService builds the production log store. The server offers no update
// or delete of a log.
func NewService(client resources.Doer, options ...resources.Option) (*Service, error) {
	logs, err := resources.NewStore[ProductionLog](client, apiclient.PathProductionLogs, append([]resources.Option{
		resources.WithName("production-logs"),
		resources.WithOrdering("-production_date"),
		resources.WithMessages("Could not load production logs.", "", "Unexpected network error."),
	}, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] production logs store")
	}
	return &Service{Logs: logs}, nil
}

func (s *Service) FetchLogs(ctx context.Context, page int) error {
	return s.Logs.FetchList(ctx, page)
}

func (s *Service) SetOrdering(ctx context.Context, column string) error {
	return s.Logs.SetOrdering(ctx, column)
}

func (s *Service) SetSearchTerm(ctx context.Context, term string) error {
	return s.Logs.SetSearchTerm(ctx, term)
}

// Register records a production run and reloads the first page. A rejection
// is kept as the store error; see AsStockShortage.
func (s *Service) Register(ctx context.Context, reg Registration) (*ProductionLog, error) {
	return s.Logs.Create(ctx, reg)
}

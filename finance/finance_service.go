// Package finance tracks incomes and expenses. Both share one entry shape
// and one list behaviour.
package finance

import (
	"context"
	"net/http"
	"time"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/resources"
	"github.com/pkg/errors"
)

// Entry is an income or an expense. Date is YYYY-MM-DD.
type Entry struct {
	ID          int               `json:"id"`
	Description string            `json:"description"`
	Amount      resources.Decimal `json:"amount"`
	Date        string            `json:"date"`
	CreatedAt   time.Time         `json:"created_at"`
}

// EntryInput is the create payload; updates accept it or a partial map.
type EntryInput struct {
	Description string            `json:"description" validate:"required,max=255"`
	Amount      resources.Decimal `json:"amount" validate:"required"`
	Date        string            `json:"date" validate:"required,datetime=2006-01-02"`
}

// Kind selects incomes or expenses.
type Kind string

const (
	Incomes  Kind = "incomes"
	Expenses Kind = "expenses"
)

type Service struct {
	Incomes  *resources.Store[Entry]
	Expenses *resources.Store[Entry]
}

func NewService(client resources.Doer, options ...resources.Option) (*Service, error) {
	incomes, err := newEntryStore(client, apiclient.PathIncomes, Incomes, options)
	if err != nil {
		return nil, err
	}
	expenses, err := newEntryStore(client, apiclient.PathExpenses, Expenses, options)
	if err != nil {
		return nil, err
	}
	return &Service{Incomes: incomes, Expenses: expenses}, nil
}

func newEntryStore(client resources.Doer, path string, kind Kind, options []resources.Option) (*resources.Store[Entry], error) {
	store, err := resources.NewStore[Entry](client, path, append([]resources.Option{
		resources.WithName(string(kind)),
		resources.WithOrdering("-date"),
		resources.WithUpdateMethod(http.MethodPatch),
		resources.WithMessages("Could not load "+string(kind)+".", "", ""),
	}, options...)...)
	return store, errors.Wrapf(err, "[NewService] %s store", kind)
}

// Store returns the store of kind, or nil for an unknown kind.
func (s *Service) Store(kind Kind) *resources.Store[Entry] {
	switch kind {
	case Incomes:
		return s.Incomes
	case Expenses:
		return s.Expenses
	}
	return nil
}

func (s *Service) Fetch(ctx context.Context, kind Kind, page int) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	return store.FetchList(ctx, page)
}

func (s *Service) SetOrdering(ctx context.Context, kind Kind, column string) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	return store.SetOrdering(ctx, column)
}

func (s *Service) SetSearchTerm(ctx context.Context, kind Kind, term string) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	return store.SetSearchTerm(ctx, term)
}

func (s *Service) Create(ctx context.Context, kind Kind, in EntryInput) (*Entry, error) {
	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, in)
}

// Update patches an entry; payload may hold only the changed fields.
func (s *Service) Update(ctx context.Context, kind Kind, id int, payload any) (*Entry, error) {
	store, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	return store.Update(ctx, id, payload)
}

func (s *Service) Delete(ctx context.Context, kind Kind, id int) error {
	store, err := s.store(kind)
	if err != nil {
		return err
	}
	return store.Delete(ctx, id)
}

func (s *Service) store(kind Kind) (*resources.Store[Entry], error) {
	if store := s.Store(kind); store != nil {
		return store, nil
	}
	return nil, errors.Errorf("unknown entry kind %q", kind)
}

package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/storage"
)

const (
	// InvestmentsKey ключ списка инвестиций пользователя
	InvestmentsKey = "fin2ools_my_funds"
	// WatchlistKey ключ списка отслеживаемых фондов
	WatchlistKey = "mf_watchlist"
)

// ErrInvestmentNotFound инвестиция с таким идентификатором не найдена
var ErrInvestmentNotFound = errors.New("investment not found")

// Store хранилище JSON-значений, которым пользуются репозитории
type Store interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}) error
	Remove(ctx context.Context, key string) error
}

// SchemeInvestments декларации пользователя по одному фонду
type SchemeInvestments struct {
	SchemeCode  int                              `json:"schemeCode"`
	Investments []calculations.DeclarationRecord `json:"investments"`
}

// InvestmentRepository список инвестиций пользователя.
// Изменяющие методы возвращают новое состояние списка.
type InvestmentRepository struct {
	mu    sync.Mutex
	store Store
	newID func() string
}

// NewInvestmentRepository создает репозиторий инвестиций
func NewInvestmentRepository(store Store) *InvestmentRepository {
	return &InvestmentRepository{store: store, newID: uuid.NewString}
}

// All возвращает все инвестиции; пустое хранилище дает пустой список
func (r *InvestmentRepository) All(ctx context.Context) ([]SchemeInvestments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Scheme возвращает инвестиции по одному фонду
func (r *InvestmentRepository) Scheme(ctx context.Context, schemeCode int) (*SchemeInvestments, bool, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range all {
		if all[i].SchemeCode == schemeCode {
			return &all[i], true, nil
		}
	}
	return nil, false, nil
}

// Add добавляет декларацию в фонд и присваивает ей идентификатор, если его нет
func (r *InvestmentRepository) Add(ctx context.Context, schemeCode int, rec calculations.DeclarationRecord) ([]SchemeInvestments, calculations.DeclarationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, rec, err
	}
	if rec.ID == "" {
		rec.ID = r.newID()
	}

	added := false
	for i := range all {
		if all[i].SchemeCode == schemeCode {
			all[i].Investments = append(all[i].Investments, rec)
			added = true
			break
		}
	}
	if !added {
		all = append(all, SchemeInvestments{SchemeCode: schemeCode, Investments: []calculations.DeclarationRecord{rec}})
	}

	if err := r.store.SetJSON(ctx, InvestmentsKey, all); err != nil {
		return nil, rec, err
	}
	return all, rec, nil
}

// Remove удаляет декларацию; фонд без деклараций удаляется из списка
func (r *InvestmentRepository) Remove(ctx context.Context, schemeCode int, id string) ([]SchemeInvestments, error) {
	return r.mutate(ctx, schemeCode, id, func(s *SchemeInvestments, idx int) {
		s.Investments = append(s.Investments[:idx], s.Investments[idx+1:]...)
	})
}

// Update заменяет декларацию с тем же идентификатором
func (r *InvestmentRepository) Update(ctx context.Context, schemeCode int, rec calculations.DeclarationRecord) ([]SchemeInvestments, error) {
	return r.mutate(ctx, schemeCode, rec.ID, func(s *SchemeInvestments, idx int) {
		s.Investments[idx] = rec
	})
}

// Clear удаляет все инвестиции
func (r *InvestmentRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Remove(ctx, InvestmentsKey)
}

// Holdings возвращает инвестиции в виде деклараций для расчетов, по возрастанию кода фонда
func (r *InvestmentRepository) Holdings(ctx context.Context) ([]calculations.Holding, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SchemeCode < all[j].SchemeCode })

	holdings := make([]calculations.Holding, 0, len(all))
	for _, s := range all {
		decls, err := calculations.DeclarationsFromRecords(s.Investments)
		if err != nil {
			return nil, fmt.Errorf("scheme %d: %w", s.SchemeCode, err)
		}
		holdings = append(holdings, calculations.Holding{SchemeCode: s.SchemeCode, Declarations: decls})
	}
	return holdings, nil
}

func (r *InvestmentRepository) mutate(ctx context.Context, schemeCode int, id string, fn func(*SchemeInvestments, int)) ([]SchemeInvestments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for si := range all {
		if all[si].SchemeCode != schemeCode {
			continue
		}
		for idx, inv := range all[si].Investments {
			if inv.ID != id {
				continue
			}
			fn(&all[si], idx)
			if len(all[si].Investments) == 0 {
				all = append(all[:si], all[si+1:]...)
			}
			if err := r.store.SetJSON(ctx, InvestmentsKey, all); err != nil {
				return nil, err
			}
			return all, nil
		}
	}
	return nil, fmt.Errorf("%w: scheme %d, id %q", ErrInvestmentNotFound, schemeCode, id)
}

func (r *InvestmentRepository) load(ctx context.Context) ([]SchemeInvestments, error) {
	var all []SchemeInvestments
	err := r.store.GetJSON(ctx, InvestmentsKey, &all)
	if errors.Is(err, storage.ErrNotFound) {
		return []SchemeInvestments{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}
	return all, nil
}

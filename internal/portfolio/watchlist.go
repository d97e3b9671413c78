package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloud-ru/mcp-fintools-go/internal/storage"
)

// WatchlistRepository список кодов отслеживаемых фондов в порядке добавления
type WatchlistRepository struct {
	mu    sync.Mutex
	store Store
}

// NewWatchlistRepository создает репозиторий списка отслеживания
func NewWatchlistRepository(store Store) *WatchlistRepository {
	return &WatchlistRepository{store: store}
}

func (r *WatchlistRepository) List(ctx context.Context) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Add добавляет фонд; повторное добавление ничего не меняет
func (r *WatchlistRepository) Add(ctx context.Context, schemeCode int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		if c == schemeCode {
			return codes, nil
		}
	}
	codes = append(codes, schemeCode)
	if err := r.store.SetJSON(ctx, WatchlistKey, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *WatchlistRepository) Remove(ctx context.Context, schemeCode int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	kept := codes[:0]
	for _, c := range codes {
		if c != schemeCode {
			kept = append(kept, c)
		}
	}
	if err := r.store.SetJSON(ctx, WatchlistKey, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (r *WatchlistRepository) Contains(ctx context.Context, schemeCode int) (bool, error) {
	codes, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		if c == schemeCode {
			return true, nil
		}
	}
	return false, nil
}

func (r *WatchlistRepository) load(ctx context.Context) ([]int, error) {
	codes := []int{}
	err := r.store.GetJSON(ctx, WatchlistKey, &codes)
	if errors.Is(err, storage.ErrNotFound) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	return codes, nil
}

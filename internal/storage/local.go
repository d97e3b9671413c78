package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalAdapter хранит все ключи в одном JSON-файле
type LocalAdapter struct {
	mu   sync.Mutex
	path string
}

// NewLocalAdapter создает файловый адаптер; файл появляется при первой записи
func NewLocalAdapter(path string) *LocalAdapter {
	return &LocalAdapter{path: path}
}

func (a *LocalAdapter) Get(_ context.Context, key string) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.load()
	if err != nil {
		return nil, err
	}
	v, ok := data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (a *LocalAdapter) Set(_ context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("storage: invalid json for %s", key)
	}
	return a.update(func(data map[string]json.RawMessage) {
		data[key] = value
	})
}

func (a *LocalAdapter) Remove(_ context.Context, key string) error {
	return a.update(func(data map[string]json.RawMessage) {
		delete(data, key)
	})
}

func (a *LocalAdapter) Clear(_ context.Context) error {
	return a.update(func(data map[string]json.RawMessage) {
		for k := range data {
			delete(data, k)
		}
	})
}

func (a *LocalAdapter) GetAll(_ context.Context) (map[string]json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load()
}

func (a *LocalAdapter) update(fn func(map[string]json.RawMessage)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := a.load()
	if err != nil {
		return err
	}
	fn(data)
	return a.save(data)
}

func (a *LocalAdapter) load() (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage)
	raw, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.path, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.path, err)
	}
	return data, nil
}

// save пишет во временный файл и переименовывает его
func (a *LocalAdapter) save(data map[string]json.RawMessage) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, a.path)
}

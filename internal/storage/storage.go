package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloud-ru/mcp-fintools-go/internal/config"
)

var (
	// ErrNotFound ключ отсутствует в хранилище
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnknownMode неизвестный режим хранилища
	ErrUnknownMode = errors.New("storage: unknown mode")
)

// Mode режим хранилища
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeSQLite Mode = "sqlite"
)

// Adapter хранилище JSON-значений по строковым ключам
type Adapter interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
}

// Service направляет операции в адаптер текущего режима
type Service struct {
	mu       sync.RWMutex
	mode     Mode
	adapters map[Mode]Adapter
}

// NewService создает сервис с набором адаптеров и начальным режимом
func NewService(mode Mode, adapters map[Mode]Adapter) (*Service, error) {
	if _, ok := adapters[mode]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return &Service{mode: mode, adapters: adapters}, nil
}

// Open создает сервис по конфигурации: файл STORAGE_PATH и база sqlite рядом с ним
func Open(cfg *config.Config) (*Service, func() error, error) {
	local := NewLocalAdapter(cfg.StoragePath)
	sqlitePath := strings.TrimSuffix(cfg.StoragePath, filepath.Ext(cfg.StoragePath)) + ".db"
	db, err := OpenSQLite(sqlitePath)
	if err != nil {
		return nil, nil, err
	}

	svc, err := NewService(Mode(cfg.StorageMode), map[Mode]Adapter{
		ModeLocal:  local,
		ModeSQLite: db,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return svc, db.Close, nil
}

// Mode возвращает текущий режим
func (s *Service) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode переключает хранилище
func (s *Service) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adapters[mode]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	s.mode = mode
	return nil
}

func (s *Service) current() Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapters[s.mode]
}

func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return s.current().Get(ctx, key)
}

func (s *Service) Set(ctx context.Context, key string, value json.RawMessage) error {
	return s.current().Set(ctx, key, value)
}

func (s *Service) Remove(ctx context.Context, key string) error {
	return s.current().Remove(ctx, key)
}

func (s *Service) Clear(ctx context.Context) error {
	return s.current().Clear(ctx)
}

func (s *Service) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	return s.current().GetAll(ctx)
}

// GetJSON читает значение ключа в out; отсутствующий ключ возвращает ErrNotFound
func (s *Service) GetJSON(ctx context.Context, key string, out interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON сохраняет значение ключа
func (s *Service) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Migrate копирует все ключи из одного режима в другой и возвращает число скопированных ключей
func (s *Service) Migrate(ctx context.Context, from, to Mode) (int, error) {
	s.mu.RLock()
	src, okFrom := s.adapters[from]
	dst, okTo := s.adapters[to]
	s.mu.RUnlock()
	if !okFrom {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, from)
	}
	if !okTo {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, to)
	}

	data, err := src.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", from, err)
	}
	for key, value := range data {
		if err := dst.Set(ctx, key, value); err != nil {
			return 0, fmt.Errorf("write %s to %s: %w", key, to, err)
		}
	}
	return len(data), nil
}

// Export выгружает все данные текущего режима в JSON с отступами
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	data, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// Import загружает данные из резервной копии, перезаписывая совпадающие ключи
func (s *Service) Import(ctx context.Context, backup []byte) (int, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(backup, &data); err != nil {
		return 0, fmt.Errorf("parse backup: %w", err)
	}
	for key, value := range data {
		if err := s.Set(ctx, key, value); err != nil {
			return 0, fmt.Errorf("import %s: %w", key, err)
		}
	}
	return len(data), nil
}

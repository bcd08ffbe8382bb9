// Package redisstore хранит снимки в Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// Name — имя провайдера в конфигурации.
const Name = "redis"

// DefaultPrefix — префикс ключей Redis по умолчанию.
const DefaultPrefix = "unentropy:"

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name:    Name,
	Options: []string{"addr", "password", "db", "ttl", "prefix"},
	Open:    open,
}

// Client — подмножество методов redis.Cmdable, используемых провайдером.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Store — провайдер поверх Redis. TTL 0 — без срока хранения.
type Store struct {
	client Client
	prefix string
	ttl    time.Duration
	logger logging.Logger
}

func open(ctx context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	addr, err := opts.RequiredString("addr")
	if err != nil {
		return nil, err
	}
	password, err := opts.String("password", "")
	if err != nil {
		return nil, err
	}
	db, err := opts.Int("db", 0)
	if err != nil {
		return nil, err
	}
	if db < 0 {
		return nil, &storage.OptionError{Key: "db", Msg: "номер базы не может быть отрицательным"}
	}
	ttl, err := opts.Duration("ttl", 0)
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		return nil, &storage.OptionError{Key: "ttl", Msg: "ttl не может быть отрицательным"}
	}
	prefix, err := opts.String("prefix", DefaultPrefix)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("подключение к redis %s: %w", addr, err)
	}
	return NewWithClient(client, prefix, ttl, deps.Logger), nil
}

// NewWithClient создаёт провайдер поверх готового клиента.
func NewWithClient(client Client, prefix string, ttl time.Duration, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{client: client, prefix: strings.TrimSpace(prefix), ttl: ttl, logger: logger}
}

// Fetch читает снимок по ключу.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", s.prefix+key, err)
	}
	return metric.Decode(val)
}

// Store записывает снимок, перезаписывая предыдущее значение.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.prefix+key, err)
	}
	s.logger.Debug("Снимок записан в redis", "key", s.prefix+key, "ttl", s.ttl.String())
	return nil
}

// Close закрывает клиент.
func (s *Store) Close() error {
	return s.client.Close()
}

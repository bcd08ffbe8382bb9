// Package badgerstore хранит снимки во встроенной базе BadgerDB.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// Name — имя провайдера в конфигурации.
const Name = "badger"

// DefaultPath — директория базы по умолчанию относительно рабочей.
const DefaultPath = ".unentropy/badger"

const keyPrefix = "snapshot:"

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name:    Name,
	Options: []string{"path", "in_memory"},
	Open:    open,
}

// Store — провайдер поверх BadgerDB.
type Store struct {
	db     *badger.DB
	logger logging.Logger
}

func open(_ context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	inMemory, err := opts.Bool("in_memory", false)
	if err != nil {
		return nil, err
	}
	path, err := opts.String("path", DefaultPath)
	if err != nil {
		return nil, err
	}
	if inMemory {
		path = ""
	} else if !filepath.IsAbs(path) && deps.WorkDir != "" {
		path = filepath.Join(deps.WorkDir, path)
	}
	return New(path, inMemory, deps.Logger)
}

// New открывает базу в path. При inMemory путь игнорируется.
func New(path string, inMemory bool, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if !inMemory && strings.TrimSpace(path) == "" {
		return nil, &storage.OptionError{Key: "path", Msg: "путь не может быть пустым"}
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger})
	if inMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть badger: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Fetch читает снимок по ключу. Отмена ctx прерывает ожидание.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		res.err = s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(keyPrefix + key))
			if err != nil {
				return err
			}
			res.data, err = item.ValueCopy(nil)
			return err
		})
		done <- res
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, badger.ErrKeyNotFound) {
			return nil, storage.ErrSnapshotNotFound
		}
		if res.err != nil {
			return nil, fmt.Errorf("чтение %q из badger: %w", key, res.err)
		}
		return metric.Decode(res.data)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Store записывает снимок в отдельной транзакции.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(keyPrefix+key), data)
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("запись %q в badger: %w", key, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger направляет журнал badger в общий логгер.
// Info badger слишком подробен и понижается до Debug.
type badgerLogger struct {
	l logging.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

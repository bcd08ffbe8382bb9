// Package local хранит снимки файлами JSON в локальной директории.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// Name — имя провайдера в конфигурации.
const Name = "local"

// DefaultPath — директория снимков по умолчанию относительно рабочей.
const DefaultPath = ".unentropy/snapshots"

// Descriptor описывает провайдер для реестра storage.
var Descriptor = storage.Descriptor{
	Name:    Name,
	Options: []string{"path"},
	Open:    open,
}

// Store — файловый провайдер. Каждый ключ хранится в отдельном файле.
type Store struct {
	root   string
	logger logging.Logger
}

func open(_ context.Context, opts storage.Options, deps storage.Deps) (storage.Provider, error) {
	path, err := opts.String("path", DefaultPath)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && deps.WorkDir != "" {
		path = filepath.Join(deps.WorkDir, path)
	}
	return New(path, deps.Logger)
}

// New создаёт провайдер с корнем root. Директория создаётся при необходимости.
func New(root string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if strings.TrimSpace(root) == "" {
		return nil, &storage.OptionError{Key: "path", Msg: "путь не может быть пустым"}
	}
	if err := os.MkdirAll(root, constants.DirPermStandard); err != nil {
		return nil, fmt.Errorf("создание директории %s: %w", root, err)
	}
	return &Store{root: root, logger: logger}, nil
}

// filePath отображает ключ в путь. Сегменты ключа становятся директориями,
// символы, недопустимые в именах файлов, экранируются.
func (s *Store) filePath(key string) (string, error) {
	parts := strings.Split(key, "/")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return "", fmt.Errorf("недопустимый ключ %q", key)
		}
		clean = append(clean, escapeSegment(p))
	}
	return filepath.Join(s.root, filepath.Join(clean...)) + ".json", nil
}

func escapeSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
		}
	}
	return b.String()
}

// Fetch читает снимок из файла.
func (s *Store) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.filePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}
	return metric.Decode(data)
}

// Store записывает снимок атомарно: во временный файл, затем переименование.
func (s *Store) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.filePath(key)
	if err != nil {
		return err
	}
	data, err := metric.Encode(snap)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermStandard); err != nil {
		return fmt.Errorf("создание директории %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// после успешного Rename файла уже нет
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("запись %s: %w", tmpName, err)
	}
	// CreateTemp создаёт файл с правами 0600
	if err := tmp.Chmod(constants.FilePermReadWrite); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("смена прав %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("переименование в %s: %w", path, err)
	}
	s.logger.Debug("Снимок записан в файл", "path", path)
	return nil
}

// Close ничего не делает.
func (s *Store) Close() error { return nil }

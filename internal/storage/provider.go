// Package storage хранит и извлекает снимки метрик через подключаемые провайдеры.
//
// Провайдер реализует только fetch/store по ключу. Storage поверх провайдера
// формирует ключи из пространства имён и цели сравнения (ветка или ревизия),
// ограничивает время вызовов и приводит ошибки к категории STORAGE.
// Провайдеры выбираются по имени из конфигурации через реестр.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
	"github.com/unentropy/unentropy-sub001/internal/util/runner"
)

// ErrSnapshotNotFound возвращается провайдером, если по ключу ничего не сохранено.
// Для Storage это означает «нет baseline», а не ошибку.
var ErrSnapshotNotFound = errors.New("снимок не найден")

// Provider — backend хранения снимков.
// Store перезаписывает существующий снимок (last-writer-wins).
type Provider interface {
	Fetch(ctx context.Context, key string) (*metric.Snapshot, error)
	Store(ctx context.Context, key string, snap *metric.Snapshot) error
	Close() error
}

// Deps — общие зависимости, доступные провайдерам при открытии.
type Deps struct {
	Logger   logging.Logger
	Executor runner.Executor
	// WorkDir — рабочая директория (корень репозитория для git-notes, база относительных путей).
	WorkDir string
}

// OpenFunc создаёт провайдер из проверенных опций.
type OpenFunc func(ctx context.Context, opts Options, deps Deps) (Provider, error)

// Descriptor описывает провайдер в реестре.
type Descriptor struct {
	// Name — идентификатор провайдера в конфигурации.
	Name string
	// Options — допустимые ключи опций. Неизвестный ключ — ошибка конфигурации.
	Options []string
	Open    OpenFunc
}

var (
	registry = make(map[string]Descriptor)
	mu       sync.RWMutex

	providerNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
)

// Register добавляет провайдер в реестр.
func Register(d Descriptor) error {
	if d.Open == nil {
		return fmt.Errorf("storage: провайдер %q без функции Open", d.Name)
	}
	if !providerNamePattern.MatchString(d.Name) {
		return fmt.Errorf("storage: некорректное имя провайдера %q", d.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[d.Name]; exists {
		return fmt.Errorf("storage: провайдер %q уже зарегистрирован", d.Name)
	}
	registry[d.Name] = d
	return nil
}

// Lookup возвращает описание провайдера по имени.
func Lookup(name string) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names возвращает отсортированный список зарегистрированных провайдеров.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unregister удаляет провайдер. Используется только в тестах.
func unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, name)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
)

// DefaultTimeout — таймаут одного вызова провайдера по умолчанию.
const DefaultTimeout = 30 * time.Second

// DefaultNamespace используется, если пространство имён не задано.
const DefaultNamespace = "default"

// ProviderConfig выбирает провайдер и задаёт его опции.
type ProviderConfig struct {
	Provider string
	Options  Options
}

// Target — цель сравнения: ветка или закреплённая ревизия.
// Если заданы оба поля, приоритет у ревизии.
type Target struct {
	Branch   string
	Revision string
}

// Validate проверяет, что задана ветка или ревизия.
func (t Target) Validate() error {
	return validateTarget(t, false)
}

// String возвращает цель для логов.
func (t Target) String() string {
	if t.Revision != "" {
		return "revision " + t.Revision
	}
	return "branch " + t.Branch
}

// Config — конфигурация Storage.
type Config struct {
	Namespace string
	Provider  ProviderConfig
	// Timeout ограничивает каждый вызов Fetch/Store.
	Timeout time.Duration
	// Baseline — цель, с которой сравнивается текущий прогон.
	Baseline Target
	// MaxAge — максимальный возраст baseline. Более старый снимок считается
	// отсутствующим. 0 — без ограничения.
	MaxAge time.Duration
}

// Storage оборачивает один провайдер и добавляет вычисление ключей.
type Storage struct {
	provider     Provider
	providerName string
	cfg          Config
	logger       logging.Logger
	now          func() time.Time
}

// New проверяет конфигурацию и открывает провайдер.
// Неизвестный провайдер и неверные опции — ошибка конфигурации до первого обращения.
func New(ctx context.Context, cfg Config, deps Deps) (*Storage, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	name := strings.TrimSpace(cfg.Provider.Provider)
	d, ok := Lookup(name)
	if !ok {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigProvider, name,
			fmt.Sprintf("неизвестный провайдер хранилища, доступны: %s", strings.Join(Names(), ", ")), nil)
	}
	if err := cfg.Provider.Options.Check(d.Options); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigProvider, name, "некорректные опции провайдера", err)
	}
	if err := validateTarget(cfg.Baseline, true); err != nil {
		return nil, err
	}

	opts := cfg.Provider.Options
	if opts == nil {
		opts = Options{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	provider, err := d.Open(openCtx, opts, deps)
	if err != nil {
		var optErr *OptionError
		if errors.As(err, &optErr) || apperrors.IsConfiguration(err) {
			return nil, apperrors.NewConfigurationError(apperrors.ErrConfigProvider, name, "некорректные опции провайдера", err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(openCtx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewStorageError(apperrors.ErrStorageTimeout, name,
				fmt.Sprintf("истёк таймаут %s при открытии хранилища", timeout), err)
		}
		return nil, apperrors.NewStorageError(apperrors.ErrStorageUnavailable, name, "не удалось открыть хранилище", err)
	}

	deps.Logger.Debug("Хранилище открыто", "provider", name, "namespace", cfg.namespace())
	return NewWithProvider(name, provider, cfg, deps.Logger), nil
}

// NewWithProvider создаёт Storage поверх готового провайдера.
func NewWithProvider(name string, p Provider, cfg Config, logger logging.Logger) *Storage {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Storage{provider: p, providerName: name, cfg: cfg, logger: logger, now: time.Now}
}

// ProviderName возвращает имя провайдера.
func (s *Storage) ProviderName() string { return s.providerName }

// Baseline возвращает настроенную цель сравнения.
func (s *Storage) Baseline() Target { return s.cfg.Baseline }

func (c Config) namespace() string {
	ns := strings.Trim(strings.TrimSpace(c.Namespace), "/")
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

// Key вычисляет ключ снимка для цели:
//
//	<namespace>/branch/<branch>
//	<namespace>/revision/<sha>
func (s *Storage) Key(t Target) (string, error) {
	if err := validateTarget(t, false); err != nil {
		return "", err
	}
	ns := s.cfg.namespace()
	if rev := strings.TrimSpace(t.Revision); rev != "" {
		return ns + "/revision/" + rev, nil
	}
	return ns + "/branch/" + NormalizeBranch(t.Branch), nil
}

// NormalizeBranch убирает префикс refs/heads/ и пробелы.
func NormalizeBranch(branch string) string {
	return strings.TrimPrefix(strings.TrimSpace(branch), "refs/heads/")
}

func validateTarget(t Target, allowEmpty bool) error {
	if strings.TrimSpace(t.Branch) == "" && strings.TrimSpace(t.Revision) == "" {
		if allowEmpty {
			return nil
		}
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "baseline",
			"не задана ни ветка, ни ревизия для сравнения", nil)
	}
	return nil
}

// FetchBaseline извлекает снимок для настроенной цели сравнения.
// Отсутствующий или устаревший (старше MaxAge) снимок — (nil, key, nil).
func (s *Storage) FetchBaseline(ctx context.Context) (snap *metric.Snapshot, key string, err error) {
	key, err = s.Key(s.cfg.Baseline)
	if err != nil {
		return nil, "", err
	}
	snap, err = s.Fetch(ctx, key)
	if err != nil || snap == nil {
		return snap, key, err
	}
	if s.cfg.MaxAge > 0 && !snap.Timestamp.IsZero() {
		if age := s.now().Sub(snap.Timestamp); age > s.cfg.MaxAge {
			s.logger.Warn("Baseline устарел и не используется",
				"provider", s.providerName,
				"key", key,
				"revision", snap.Revision,
				"age", age.Round(time.Second).String(),
				"max_age", s.cfg.MaxAge.String(),
			)
			return nil, key, nil
		}
	}
	return snap, key, nil
}

// Fetch извлекает снимок по ключу. Отсутствие снимка — (nil, nil).
// Истечение таймаута — StorageError с кодом STORAGE.TIMEOUT.
func (s *Storage) Fetch(ctx context.Context, key string) (*metric.Snapshot, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	snap, err := s.provider.Fetch(callCtx, key)
	switch {
	case err == nil:
		s.logger.Info("Baseline найден", "provider", s.providerName, "key", key,
			"revision", snap.Revision, "duration_ms", time.Since(start).Milliseconds())
		return snap, nil
	case errors.Is(err, ErrSnapshotNotFound):
		s.logger.Info("Baseline отсутствует", "provider", s.providerName, "key", key)
		return nil, nil
	default:
		return nil, s.wrap(callCtx, apperrors.ErrStorageFetch, "не удалось прочитать снимок "+key, err)
	}
}

// Store сохраняет снимок по ключу.
func (s *Storage) Store(ctx context.Context, key string, snap *metric.Snapshot) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.provider.Store(callCtx, key, snap); err != nil {
		return s.wrap(callCtx, apperrors.ErrStorageStore, "не удалось сохранить снимок "+key, err)
	}
	s.logger.Info("Снимок сохранён", "provider", s.providerName, "key", key)
	return nil
}

// Persist сохраняет снимок под ключом ветки и под ключом ревизии снимка,
// чтобы последующие прогоны могли сравниваться как с веткой, так и с ревизией.
// Возвращает записанные ключи.
func (s *Storage) Persist(ctx context.Context, branch string, snap *metric.Snapshot) ([]string, error) {
	var targets []Target
	if NormalizeBranch(branch) != "" {
		targets = append(targets, Target{Branch: branch})
	}
	if strings.TrimSpace(snap.Revision) != "" {
		targets = append(targets, Target{Revision: snap.Revision})
	}
	if len(targets) == 0 {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "persist",
			"для сохранения снимка нужна ветка или ревизия", nil)
	}

	written := make([]string, 0, len(targets))
	for _, t := range targets {
		key, err := s.Key(t)
		if err != nil {
			return written, err
		}
		if err := s.Store(ctx, key, snap); err != nil {
			return written, err
		}
		written = append(written, key)
	}
	return written, nil
}

// Close закрывает провайдер.
func (s *Storage) Close() error {
	return s.provider.Close()
}

func (s *Storage) wrap(callCtx context.Context, code, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apperrors.NewStorageError(apperrors.ErrStorageTimeout, s.providerName,
			fmt.Sprintf("истёк таймаут %s: %s", s.cfg.Timeout, msg), err)
	}
	return apperrors.NewStorageError(code, s.providerName, msg, err)
}

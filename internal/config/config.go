// Package config загружает параметры запуска из окружения CI и файл
// конфигурации quality gate.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/unentropy/unentropy-sub001/internal/collector"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
	"github.com/unentropy/unentropy-sub001/internal/storage"
)

// DefaultConfigPath — путь к файлу конфигурации по умолчанию.
const DefaultConfigPath = "unentropy.yml"

// DefaultStorageProvider используется, если провайдер не задан в файле.
const DefaultStorageProvider = "local"

// Поддерживаемые форматы вывода.
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// InputParams — параметры действия CI. Названия переменных совпадают с
// входами GitHub Action (INPUT_*), значения по умолчанию берутся из
// переменных окружения раннера (GITHUB_*).
type InputParams struct {
	Command          string `env:"INPUT_COMMAND"`
	ConfigPath       string `env:"INPUT_CONFIG" env-default:"unentropy.yml"`
	Branch           string `env:"INPUT_BRANCH"`
	Revision         string `env:"INPUT_REVISION"`
	BaselineBranch   string `env:"INPUT_BASELINE_BRANCH"`
	BaselineRevision string `env:"INPUT_BASELINE_REVISION"`
	LogLevel         string `env:"INPUT_LOGLEVEL"`
	ReportPath       string `env:"INPUT_REPORT_PATH"`
	QualityGateMode  string `env:"INPUT_QUALITY_GATE_MODE"`
	WorkDir          string `env:"INPUT_WORKDIR"`

	OutputFormat string `env:"QG_OUTPUT_FORMAT" env-default:"text"`
	EnvFile      string `env:"QG_ENV_FILE"`

	GitHubHeadRef     string `env:"GITHUB_HEAD_REF"`
	GitHubRefName     string `env:"GITHUB_REF_NAME"`
	GitHubSHA         string `env:"GITHUB_SHA"`
	GitHubBaseRef     string `env:"GITHUB_BASE_REF"`
	GitHubStepSummary string `env:"GITHUB_STEP_SUMMARY"`
}

// Config — итоговая конфигурация запуска.
type Config struct {
	// Command — имя выполняемой команды.
	Command string
	// ConfigPath — путь к файлу конфигурации quality gate.
	ConfigPath string
	// WorkDir — рабочая директория сбора метрик и локальных хранилищ.
	WorkDir string

	// Branch и Revision описывают текущий прогон.
	Branch   string
	Revision string

	// BaselineBranch и BaselineRevision переопределяют цель сравнения из файла.
	BaselineBranch   string
	BaselineRevision string
	// BaseRef — целевая ветка pull request (GITHUB_BASE_REF).
	BaseRef string

	// ReportPath — файл для Markdown-отчёта. Пустая строка — не писать.
	ReportPath string
	// QualityGateMode переопределяет qualityGate.mode из файла.
	QualityGateMode string
	// OutputFormat — text или json.
	OutputFormat string

	// File — содержимое файла конфигурации. nil, если файл не найден.
	File *FileConfig

	Logging LoggingConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

// Load читает параметры окружения и, если файл существует, конфигурацию
// quality gate. Отсутствие файла не является ошибкой: команды, которым он
// нужен, проверяют это через RequireFile.
func Load() (*Config, error) {
	params, err := readInputParams()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Command:          strings.TrimSpace(params.Command),
		ConfigPath:       params.ConfigPath,
		WorkDir:          params.WorkDir,
		Branch:           firstNonEmpty(params.Branch, params.GitHubHeadRef, params.GitHubRefName),
		Revision:         firstNonEmpty(params.Revision, params.GitHubSHA),
		BaselineBranch:   params.BaselineBranch,
		BaselineRevision: params.BaselineRevision,
		BaseRef:          params.GitHubBaseRef,
		ReportPath:       firstNonEmpty(params.ReportPath, params.GitHubStepSummary),
		QualityGateMode:  params.QualityGateMode,
		OutputFormat:     strings.ToLower(params.OutputFormat),
		Logging:          DefaultLoggingConfig(),
		Metrics:          DefaultMetricsConfig(),
		Tracing:          DefaultTracingConfig(),
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = OutputFormatText
	}
	if cfg.WorkDir == "" {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			cfg.WorkDir = wd
		}
	}

	path := cfg.ConfigPath
	if !filepath.IsAbs(path) && cfg.WorkDir != "" {
		path = filepath.Join(cfg.WorkDir, path)
	}
	file, err := LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		cfg.File = file
		cfg.applyFile(file)
	}

	// Переменные окружения QG_* переопределяют секции файла.
	for _, section := range []any{&cfg.Logging, &cfg.Metrics, &cfg.Tracing} {
		if err := cleanenv.ReadEnv(section); err != nil {
			return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, "",
				"не удалось прочитать переменные окружения", err)
		}
	}
	if params.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(params.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readInputParams читает InputParams. Если задан QG_ENV_FILE, переменные из
// него добавляются в окружение и параметры перечитываются. Уже заданные
// переменные окружения не перезаписываются.
func readInputParams() (*InputParams, error) {
	var params InputParams
	if err := cleanenv.ReadEnv(&params); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, "",
			"не удалось прочитать параметры окружения", err)
	}
	if params.EnvFile == "" {
		return &params, nil
	}
	if err := godotenv.Load(params.EnvFile); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, params.EnvFile,
			"не удалось загрузить env-файл", err)
	}
	params = InputParams{}
	if err := cleanenv.ReadEnv(&params); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, "",
			"не удалось прочитать параметры окружения", err)
	}
	return &params, nil
}

func (c *Config) applyFile(f *FileConfig) {
	if f.Logging != nil {
		c.Logging.merge(*f.Logging)
	}
	if f.Prometheus != nil {
		c.Metrics.merge(*f.Prometheus)
	}
	if f.Tracing != nil {
		c.Tracing.merge(*f.Tracing)
	}
}

// RequireFile возвращает файл конфигурации или ошибку, если он не найден.
func (c *Config) RequireFile() (*FileConfig, error) {
	if c.File == nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, c.ConfigPath,
			"файл конфигурации не найден", nil)
	}
	return c.File, nil
}

// Validate проверяет параметры запуска и, если загружен, файл конфигурации.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case OutputFormatText, OutputFormatJSON:
	default:
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "QG_OUTPUT_FORMAT",
			fmt.Sprintf("неизвестный формат вывода %q, допустимы: text, json", c.OutputFormat), nil)
	}
	if err := c.Logging.validate(); err != nil {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "logging", err.Error(), nil)
	}
	mc := c.PushConfig()
	if err := mc.Validate(); err != nil {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "prometheus", err.Error(), nil)
	}
	tc := c.Tracing.ToTracingConfig("")
	if err := tc.Validate(); err != nil {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "tracing", err.Error(), nil)
	}
	if _, err := c.GateMode(); err != nil {
		return err
	}
	if c.File != nil {
		return c.File.Validate()
	}
	return nil
}

// GateMode возвращает режим quality gate: INPUT_QUALITY_GATE_MODE, затем
// qualityGate.mode из файла, иначе qualitygate.DefaultMode.
func (c *Config) GateMode() (qualitygate.Mode, error) {
	raw, subject := c.QualityGateMode, "INPUT_QUALITY_GATE_MODE"
	if strings.TrimSpace(raw) == "" && c.File != nil {
		raw, subject = c.File.QualityGate.Mode, "qualityGate.mode"
	}
	mode, err := qualitygate.ParseMode(raw)
	if err != nil {
		return "", apperrors.NewConfigurationError(apperrors.ErrConfigValidate, subject, err.Error(), nil)
	}
	return mode, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// StorageConfig собирает конфигурацию хранилища.
func (c *Config) StorageConfig() storage.Config {
	var st FileStorage
	var ns string
	if c.File != nil {
		st = c.File.Storage
		ns = c.File.Namespace
	}
	provider := st.Provider
	if provider == "" {
		provider = DefaultStorageProvider
	}
	return storage.Config{
		Namespace: ns,
		Provider:  storage.ProviderConfig{Provider: provider, Options: storage.Options(st.Options)},
		Timeout:   st.Timeout,
		Baseline:  c.BaselineTarget(),
		MaxAge:    st.Baseline.MaxAge(),
	}
}

// BaselineTarget выбирает цель сравнения целиком из одного источника:
// пара INPUT_BASELINE_BRANCH/INPUT_BASELINE_REVISION, затем пара
// storage.baseline из файла, затем GITHUB_BASE_REF, иначе текущая ветка.
// Поля разных источников не смешиваются: ревизия из файла не перекрывает
// ветку, заданную во входах.
func (c *Config) BaselineTarget() storage.Target {
	env := storage.Target{
		Branch:   strings.TrimSpace(c.BaselineBranch),
		Revision: strings.TrimSpace(c.BaselineRevision),
	}
	if env.Validate() == nil {
		return env
	}
	if c.File != nil {
		b := c.File.Storage.Baseline
		file := storage.Target{
			Branch:   strings.TrimSpace(b.Branch),
			Revision: strings.TrimSpace(b.Revision),
		}
		if file.Validate() == nil {
			return file
		}
	}
	return storage.Target{Branch: firstNonEmpty(c.BaseRef, c.Branch)}
}

// CollectorOptions возвращает параметры сборщика.
func (c *Config) CollectorOptions() collector.Options {
	opts := collector.Options{WorkDir: c.WorkDir}
	if c.File == nil {
		return opts
	}
	fc := c.File.Collector
	opts.Concurrency = fc.Concurrency
	opts.Timeout = fc.Timeout
	opts.Env = fc.Env
	if fc.WorkDir != "" {
		opts.WorkDir = fc.WorkDir
		if !filepath.IsAbs(fc.WorkDir) && c.WorkDir != "" {
			opts.WorkDir = filepath.Join(c.WorkDir, fc.WorkDir)
		}
	}
	return opts
}

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unentropy/unentropy-sub001/internal/collector"
	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
	"github.com/unentropy/unentropy-sub001/internal/service/qualitygate"
)

// FileConfig — содержимое файла конфигурации quality gate (unentropy.yml).
type FileConfig struct {
	Namespace   string          `yaml:"namespace"`
	Metrics     []FileMetric    `yaml:"metrics"`
	Collector   FileCollector   `yaml:"collector"`
	QualityGate FileQualityGate `yaml:"qualityGate"`
	Storage     FileStorage     `yaml:"storage"`
	Logging     *FileLogging    `yaml:"logging"`
	Prometheus  *FilePrometheus `yaml:"prometheus"`
	Tracing     *FileTracing    `yaml:"tracing"`
}

// FileMetric описывает одну собираемую метрику.
type FileMetric struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Unit        string        `yaml:"unit"`
	Timeout     time.Duration `yaml:"timeout"`
	Source      FileSource    `yaml:"source"`
}

// FileSource — источник значения метрики.
type FileSource struct {
	Kind     string   `yaml:"kind"`
	Command  string   `yaml:"command"`
	Paths    []string `yaml:"paths"`
	Coverage string   `yaml:"coverage"`
	Fallback *float64 `yaml:"fallback"`
}

// FileCollector — параметры сборщика.
type FileCollector struct {
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	// WorkDir относительно рабочей директории запуска.
	WorkDir string   `yaml:"workDir"`
	Env     []string `yaml:"env"`
}

// FileQualityGate — правила и их применение.
type FileQualityGate struct {
	// Mode — off, soft или hard. Пусто — hard.
	Mode string `yaml:"mode"`
	// WarnAsFail превращает итоговый warn в ненулевой код завершения
	// (только в режиме hard).
	WarnAsFail bool                 `yaml:"warnAsFail"`
	Rules      []gate.ThresholdRule `yaml:"rules"`
}

// FileStorage — хранилище снимков и политика сохранения.
type FileStorage struct {
	Provider             string         `yaml:"provider"`
	Options              map[string]any `yaml:"options"`
	Timeout              time.Duration  `yaml:"timeout"`
	Baseline             FileBaseline   `yaml:"baseline"`
	Persist              string         `yaml:"persist"`
	WarnCountsAsPass     bool           `yaml:"warnCountsAsPass"`
	StoreErrorsFatal     bool           `yaml:"storeErrorsFatal"`
	FetchErrorsAsMissing bool           `yaml:"fetchErrorsAsMissing"`
}

// FileBaseline — цель сравнения.
type FileBaseline struct {
	Branch   string `yaml:"branch"`
	Revision string `yaml:"revision"`
	// MaxAgeDays — снимок старше этого числа дней не используется как baseline.
	// Не задано — DefaultBaselineMaxAgeDays, 0 — без ограничения.
	MaxAgeDays *int `yaml:"maxAgeDays"`
}

// DefaultBaselineMaxAgeDays — максимальный возраст baseline по умолчанию.
const DefaultBaselineMaxAgeDays = 90

// MaxAge возвращает максимальный возраст baseline.
func (b FileBaseline) MaxAge() time.Duration {
	days := DefaultBaselineMaxAgeDays
	if b.MaxAgeDays != nil {
		days = *b.MaxAgeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// FileLogging — секция logging. Незаданные поля не меняют значения по умолчанию.
type FileLogging struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"filePath"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups *int   `yaml:"maxBackups"`
	MaxAge     *int   `yaml:"maxAge"`
	Compress   *bool  `yaml:"compress"`
}

// FilePrometheus — секция prometheus.
type FilePrometheus struct {
	Enabled        *bool         `yaml:"enabled"`
	PushgatewayURL string        `yaml:"pushgatewayUrl"`
	JobName        string        `yaml:"jobName"`
	Timeout        time.Duration `yaml:"timeout"`
	InstanceLabel  string        `yaml:"instanceLabel"`
}

// FileTracing — секция tracing.
type FileTracing struct {
	Enabled      *bool         `yaml:"enabled"`
	Endpoint     string        `yaml:"endpoint"`
	ServiceName  string        `yaml:"serviceName"`
	Environment  string        `yaml:"environment"`
	Insecure     *bool         `yaml:"insecure"`
	Timeout      time.Duration `yaml:"timeout"`
	SamplingRate *float64      `yaml:"samplingRate"`
}

// LoadFile читает файл конфигурации, проверяет его по схеме и разбирает.
// Для отсутствующего файла возвращается ошибка, удовлетворяющая
// errors.Is(err, fs.ErrNotExist).
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigLoad, path,
			"не удалось прочитать файл конфигурации", err)
	}
	return ParseFile(path, data)
}

// ParseFile разбирает содержимое файла конфигурации. name используется в ошибках.
func ParseFile(name string, data []byte) (*FileConfig, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigParse, name,
			"некорректный YAML", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigValidate, name,
			fmt.Sprintf("файл не соответствует схеме: %v", err), nil)
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, apperrors.NewConfigurationError(apperrors.ErrConfigParse, name,
			"не удалось разобрать файл конфигурации", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// toJSONValue переводит дерево YAML в JSON-значения для проверки схемой.
func toJSONValue(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return unmarshalJSON(raw)
}

// Validate проверяет согласованность файла: метрики, правила, хранилище
// и политику сохранения. Все ошибки — ConfigurationError с именем метрики,
// правила или провайдера.
func (f *FileConfig) Validate() error {
	specs, err := f.Specs()
	if err != nil {
		return err
	}
	if err := collector.ValidateSpecs(specs); err != nil {
		return err
	}
	units := make(map[string]metric.UnitType, len(specs))
	for _, s := range specs {
		units[s.Name] = s.Unit
	}
	for _, r := range f.QualityGate.Rules {
		unit, ok := units[r.Metric]
		if !ok {
			return apperrors.NewConfigurationError(apperrors.ErrConfigUnknownMetric, r.Metric,
				"правило ссылается на необъявленную метрику", nil)
		}
		if _, err := r.Resolve(unit); err != nil {
			return err
		}
	}
	if _, err := f.Policy(); err != nil {
		return err
	}
	if _, err := qualitygate.ParseMode(f.QualityGate.Mode); err != nil {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate,
			"qualityGate.mode", err.Error(), nil)
	}
	return nil
}

// Specs преобразует метрики файла в спецификации сборщика.
func (f *FileConfig) Specs() ([]collector.Spec, error) {
	specs := make([]collector.Spec, 0, len(f.Metrics))
	for _, m := range f.Metrics {
		unit, err := metric.ParseUnit(m.Unit)
		if err != nil {
			return nil, apperrors.NewConfigurationError(apperrors.ErrConfigValidate, m.Name, err.Error(), nil)
		}
		specs = append(specs, collector.Spec{
			Name: m.Name,
			Unit: unit,
			Source: collector.Source{
				Kind:     collector.SourceKind(m.Source.Kind),
				Command:  m.Source.Command,
				Paths:    m.Source.Paths,
				Coverage: collector.CoverageType(m.Source.Coverage),
				Fallback: m.Source.Fallback,
			},
			Timeout: m.Timeout,
		})
	}
	return specs, nil
}

// Rules возвращает правила quality gate в порядке объявления.
func (f *FileConfig) Rules() []gate.ThresholdRule {
	return f.QualityGate.Rules
}

// Policy возвращает политику сохранения снимков.
func (f *FileConfig) Policy() (qualitygate.Policy, error) {
	persist, err := qualitygate.ParsePersistPolicy(f.Storage.Persist)
	if err != nil {
		return qualitygate.Policy{}, apperrors.NewConfigurationError(apperrors.ErrConfigValidate,
			"storage.persist", err.Error(), nil)
	}
	return qualitygate.Policy{
		Persist:              persist,
		WarnCountsAsPass:     f.Storage.WarnCountsAsPass,
		StoreErrorsFatal:     f.Storage.StoreErrorsFatal,
		FetchErrorsAsMissing: f.Storage.FetchErrorsAsMissing,
	}, nil
}

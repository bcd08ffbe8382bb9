package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
)

// SourceKind — способ извлечения значения метрики.
type SourceKind string

// Поддерживаемые способы извлечения.
const (
	// SourceCommand — число из первой непустой строки stdout команды.
	SourceCommand SourceKind = "command"
	// SourceCommandDuration — время выполнения команды в миллисекундах.
	SourceCommandDuration SourceKind = "command_duration"
	// SourceFileSize — суммарный размер файлов по glob-шаблонам в байтах.
	SourceFileSize SourceKind = "file_size"
	// SourceLCOV — процент покрытия из отчёта LCOV.
	SourceLCOV SourceKind = "lcov"
	// SourceCobertura — процент покрытия из XML-отчёта Cobertura.
	SourceCobertura SourceKind = "cobertura"
)

// CoverageType — вид покрытия для отчётов LCOV и Cobertura.
type CoverageType string

// Поддерживаемые виды покрытия.
const (
	CoverageLine     CoverageType = "line"
	CoverageBranch   CoverageType = "branch"
	CoverageFunction CoverageType = "function"
)

// Source описывает, откуда брать значение метрики.
type Source struct {
	Kind SourceKind

	// Command — shell-команда для command и command_duration.
	Command string

	// Paths — glob-шаблоны для file_size, путь к отчёту (первый элемент) для lcov/cobertura.
	Paths []string

	// Coverage — вид покрытия для lcov/cobertura. По умолчанию line.
	Coverage CoverageType

	// Fallback — значение, если отчёт покрытия не содержит данных выбранного вида.
	Fallback *float64
}

// Spec описывает одну собираемую метрику.
type Spec struct {
	Name   string
	Unit   metric.UnitType
	Source Source

	// Timeout переопределяет таймаут сборщика для этой метрики.
	Timeout time.Duration
}

// validate проверяет спецификацию до запуска извлечения.
func (s Spec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, "",
			"у метрики не задано имя", nil)
	}
	if !s.Unit.Valid() {
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
			fmt.Sprintf("неизвестная единица измерения %q", s.Unit), nil)
	}
	switch s.Source.Kind {
	case SourceCommand, SourceCommandDuration:
		if strings.TrimSpace(s.Source.Command) == "" {
			return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
				fmt.Sprintf("для источника %s не задана команда", s.Source.Kind), nil)
		}
	case SourceFileSize, SourceLCOV, SourceCobertura:
		if len(s.Source.Paths) == 0 {
			return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
				fmt.Sprintf("для источника %s не задан путь", s.Source.Kind), nil)
		}
	default:
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
			fmt.Sprintf("неизвестный источник метрики %q", s.Source.Kind), nil)
	}
	switch s.Source.Coverage {
	case "", CoverageLine, CoverageBranch, CoverageFunction:
	default:
		return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
			fmt.Sprintf("неизвестный вид покрытия %q", s.Source.Coverage), nil)
	}
	return nil
}

// ValidateSpecs проверяет набор спецификаций: корректность каждой и уникальность имён.
func ValidateSpecs(specs []Spec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return apperrors.NewConfigurationError(apperrors.ErrConfigValidate, s.Name,
				"метрика объявлена несколько раз", nil)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

package qualitygate

import (
	"fmt"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/gate"
)

// PersistPolicy определяет, когда сохранять снимок после оценки.
type PersistPolicy string

// Поддерживаемые политики сохранения.
const (
	PersistAlways     PersistPolicy = "always"
	PersistOnPassOnly PersistPolicy = "on-pass-only"
	PersistNever      PersistPolicy = "never"
)

// ParsePersistPolicy разбирает политику. Пустая строка — on-pass-only.
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch p := PersistPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PersistOnPassOnly, nil
	case PersistAlways, PersistOnPassOnly, PersistNever:
		return p, nil
	default:
		return "", fmt.Errorf("неизвестная политика сохранения %q, допустимы: always, on-pass-only, never", s)
	}
}

// Policy — настройки поведения конвейера при сохранении и ошибках хранилища.
type Policy struct {
	Persist PersistPolicy
	// WarnCountsAsPass — считать warn успешным для on-pass-only.
	WarnCountsAsPass bool
	// StoreErrorsFatal — ошибка сохранения прерывает прогон, иначе становится предупреждением.
	StoreErrorsFatal bool
	// FetchErrorsAsMissing — ошибка чтения baseline трактуется как его отсутствие с предупреждением.
	FetchErrorsAsMissing bool
}

// ShouldPersist решает, сохранять ли снимок при итоговом статусе status.
func (p Policy) ShouldPersist(status gate.Status) bool {
	switch p.Persist {
	case PersistAlways:
		return true
	case PersistNever:
		return false
	default:
		if status == gate.StatusPass {
			return true
		}
		return status == gate.StatusWarn && p.WarnCountsAsPass
	}
}

// Package gate сопоставляет текущие метрики с baseline и применяет пороговые правила.
//
// Пакет чистый: BuildMetricSamples и EvaluateQualityGate не выполняют ввода-вывода
// и при одинаковых входных данных дают одинаковый результат.
package gate

import "fmt"

// Status — итог проверки. Значения упорядочены: pass < warn < fail.
type Status int

// Допустимые статусы.
const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

var statusNames = [...]string{"pass", "warn", "fail"}

// String возвращает имя статуса.
func (s Status) String() string {
	if s < StatusPass || s > StatusFail {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus разбирает имя статуса.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusPass, fmt.Errorf("неизвестный статус %q", name)
}

// MarshalText реализует encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusPass || s > StatusFail {
		return nil, fmt.Errorf("недопустимый статус %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Max возвращает наиболее строгий из статусов. Без аргументов — pass.
func Max(statuses ...Status) Status {
	out := StatusPass
	for _, s := range statuses {
		if s > out {
			out = s
		}
	}
	return out
}

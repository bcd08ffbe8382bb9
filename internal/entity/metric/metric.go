// Package metric содержит модель данных метрик: единицы измерения, отдельное
// значение метрики и снимок (snapshot) всех метрик одного прогона.
package metric

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// UnitType — семантический тип единицы измерения метрики.
// Определяет форматирование значения и направление сравнения по умолчанию.
type UnitType string

// Поддерживаемые единицы измерения.
const (
	UnitBytes      UnitType = "bytes"
	UnitDurationMs UnitType = "duration_ms"
	UnitCount      UnitType = "count"
	UnitPercentage UnitType = "percentage"
	UnitRatio      UnitType = "ratio"
)

// Direction — направление «улучшения» метрики.
type Direction string

// Поддерживаемые направления сравнения.
const (
	LowerIsBetter  Direction = "lower_is_better"
	HigherIsBetter Direction = "higher_is_better"
)

// units перечисляет все допустимые единицы в порядке объявления.
var units = []UnitType{UnitBytes, UnitDurationMs, UnitCount, UnitPercentage, UnitRatio}

// Units возвращает список поддерживаемых единиц измерения.
func Units() []UnitType {
	out := make([]UnitType, len(units))
	copy(out, units)
	return out
}

// Valid сообщает, является ли единица одной из поддерживаемых.
func (u UnitType) Valid() bool {
	for _, known := range units {
		if u == known {
			return true
		}
	}
	return false
}

// ParseUnit преобразует строку в UnitType.
func ParseUnit(s string) (UnitType, error) {
	u := UnitType(s)
	if !u.Valid() {
		return "", fmt.Errorf("неизвестная единица измерения %q", s)
	}
	return u, nil
}

// DefaultDirection возвращает направление по умолчанию для единицы.
// Для размеров и длительностей меньше — лучше. Для остальных единиц
// направление зависит от контекста и должно задаваться явно (ok=false).
func (u UnitType) DefaultDirection() (Direction, bool) {
	switch u {
	case UnitBytes, UnitDurationMs:
		return LowerIsBetter, true
	default:
		return "", false
	}
}

// Valid сообщает, является ли направление допустимым.
func (d Direction) Valid() bool {
	return d == LowerIsBetter || d == HigherIsBetter
}

// Metric — одно значение метрики. Неизменяемо после создания.
type Metric struct {
	Name  string   `json:"name"`
	Value float64  `json:"value"`
	Unit  UnitType `json:"unit"`
}

// Snapshot — набор метрик одного прогона. Единица хранения baseline.
// Снимок не изменяется после создания: следующий прогон создаёт новый.
type Snapshot struct {
	Revision  string            `json:"revision"`
	Branch    string            `json:"branch,omitempty"`
	RunID     string            `json:"runId,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metrics   map[string]Metric `json:"metrics"`
}

// NewSnapshot создаёт снимок из списка метрик.
// Возвращает ошибку при пустом или повторяющемся имени метрики.
func NewSnapshot(revision string, ts time.Time, metrics []Metric) (*Snapshot, error) {
	byName := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		if m.Name == "" {
			return nil, fmt.Errorf("метрика без имени в снимке %q", revision)
		}
		if _, dup := byName[m.Name]; dup {
			return nil, fmt.Errorf("метрика %q повторяется в снимке", m.Name)
		}
		byName[m.Name] = m
	}
	return &Snapshot{
		Revision:  revision,
		Timestamp: ts.UTC(),
		Metrics:   byName,
	}, nil
}

// Names возвращает имена метрик снимка по возрастанию.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Metrics))
	for name := range s.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted возвращает метрики снимка, упорядоченные по имени.
func (s *Snapshot) Sorted() []Metric {
	names := s.Names()
	out := make([]Metric, 0, len(names))
	for _, name := range names {
		out = append(out, s.Metrics[name])
	}
	return out
}

// Get возвращает метрику по имени.
func (s *Snapshot) Get(name string) (Metric, bool) {
	if s == nil {
		return Metric{}, false
	}
	m, ok := s.Metrics[name]
	return m, ok
}

// Encode сериализует снимок в JSON. encoding/json сортирует ключи map,
// поэтому одинаковые снимки дают одинаковые байты.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	return json.Marshal(s)
}

// Decode разбирает снимок из JSON и проверяет согласованность имён.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("не удалось разобрать снимок метрик: %w", err)
	}
	if s.Metrics == nil {
		s.Metrics = map[string]Metric{}
	}
	for key, m := range s.Metrics {
		if m.Name == "" {
			m.Name = key
			s.Metrics[key] = m
		}
		if m.Name != key {
			return nil, fmt.Errorf("ключ %q не совпадает с именем метрики %q", key, m.Name)
		}
	}
	return &s, nil
}

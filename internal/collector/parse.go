package collector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError — вывод источника не удалось интерпретировать как число.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("не удалось разобрать числовое значение из %q", e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseCommandOutput берёт первую непустую строку вывода и разбирает её как число.
// Допускаются разделители тысяч (запятая, подчёркивание) и суффикс "%".
// Хвост строки после первого пробела игнорируется: "1234\tdist" → 1234.
func ParseCommandOutput(out string) (float64, error) {
	var line string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return 0, &ParseError{Input: out, Err: fmt.Errorf("пустой вывод")}
	}

	token := line
	if i := strings.IndexAny(token, " \t"); i >= 0 {
		token = token[:i]
	}
	token = strings.TrimSuffix(token, "%")
	token = strings.NewReplacer(",", "", "_", "").Replace(token)

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, &ParseError{Input: line, Err: err}
	}
	return v, nil
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("получено %v", v)
	}
	return nil
}

package storage

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Options — опции провайдера из конфигурации: строка, число или bool.
type Options map[string]any

// OptionError — опция отсутствует, неизвестна или имеет неверный тип.
type OptionError struct {
	Key string
	Msg string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("опция %q: %s", e.Key, e.Msg)
}

// Check проверяет, что все ключи опций входят в allowed.
func (o Options) Check(allowed []string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		known[k] = struct{}{}
	}
	var unknown []string
	for k := range o {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &OptionError{
		Key: strings.Join(unknown, ","),
		Msg: fmt.Sprintf("неизвестная опция, допустимы: %s", strings.Join(allowed, ", ")),
	}
}

// String возвращает строковую опцию или def. Числа и bool приводятся к строке.
func (o Options) String(key, def string) (string, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", &OptionError{Key: key, Msg: fmt.Sprintf("ожидается строка, получено %T", raw)}
	}
}

// RequiredString возвращает непустую строковую опцию.
func (o Options) RequiredString(key string) (string, error) {
	v, err := o.String(key, "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", &OptionError{Key: key, Msg: "обязательная опция не задана"}
	}
	return v, nil
}

// Bool возвращает логическую опцию или def. Допускаются строки "true"/"false".
func (o Options) Bool(key string, def bool) (bool, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается bool, получено %q", v)}
		}
		return b, nil
	default:
		return false, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается bool, получено %T", raw)}
	}
}

// Int возвращает целочисленную опцию или def.
func (o Options) Int(key string, def int) (int, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается целое, получено %v", v)}
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается целое, получено %q", v)}
		}
		return n, nil
	default:
		return 0, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается целое, получено %T", raw)}
	}
}

// Duration возвращает опцию-длительность или def.
// Строка разбирается через time.ParseDuration, число трактуется как секунды.
func (o Options) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := o[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается длительность, получено %q", v)}
		}
		return d, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return 0, &OptionError{Key: key, Msg: fmt.Sprintf("ожидается длительность, получено %T", raw)}
	}
}

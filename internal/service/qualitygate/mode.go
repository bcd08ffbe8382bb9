package qualitygate

import (
	"fmt"
	"strings"

	"github.com/unentropy/unentropy-sub001/internal/gate"
)

// Mode определяет, влияет ли вердикт quality gate на результат сборки.
type Mode string

// Режимы quality gate.
const (
	// ModeOff — оценка не выполняется, метрики не собираются.
	ModeOff Mode = "off"
	// ModeSoft — вердикт выводится в отчёт, но не приводит к ненулевому коду.
	ModeSoft Mode = "soft"
	// ModeHard — fail (и warn при warnAsFail) завершает сборку с кодом 1.
	ModeHard Mode = "hard"
)

// DefaultMode — режим, если он не задан ни во входах, ни в файле.
const DefaultMode = ModeHard

// ParseMode разбирает режим. Пустая строка — DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DefaultMode, nil
	case ModeOff, ModeSoft, ModeHard:
		return m, nil
	default:
		return "", fmt.Errorf("неизвестный режим quality gate %q, допустимы: off, soft, hard", s)
	}
}

// String возвращает имя режима.
func (m Mode) String() string {
	return string(m)
}

// Enabled сообщает, выполняется ли оценка в этом режиме.
func (m Mode) Enabled() bool {
	return m != ModeOff
}

// Blocks сообщает, должен ли статус завершить сборку с ошибкой.
func (m Mode) Blocks(status gate.Status, warnAsFail bool) bool {
	if m != ModeHard {
		return false
	}
	switch status {
	case gate.StatusFail:
		return true
	case gate.StatusWarn:
		return warnAsFail
	}
	return false
}

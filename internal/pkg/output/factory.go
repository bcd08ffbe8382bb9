package output

import "strings"

// FormatJSON и FormatText — поддерживаемые форматы вывода.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// NewWriter создаёт Writer по формату без учёта регистра.
// Неизвестный формат даёт TextWriter.
func NewWriter(format string) Writer {
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		return NewJSONWriter()
	}
	return NewTextWriter()
}

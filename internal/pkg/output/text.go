package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/pkg/unitfmt"
)

const summaryDivider = "══════════════════════════════════════════════════════"

// TextWriter форматирует Result в человекочитаемый текст.
type TextWriter struct{}

// NewTextWriter создаёт TextWriter.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// Write форматирует result в текст. Для ошибок сводка не выводится.
func (t *TextWriter) Write(w io.Writer, result *Result) error {
	if result == nil {
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s: %s\n", result.Command, result.Status); err != nil {
		return err
	}

	if result.Error != nil {
		subject := ""
		if result.Error.Subject != "" {
			subject = " (" + result.Error.Subject + ")"
		}
		if _, err := fmt.Fprintf(w, "Error [%s]%s: %s\n", result.Error.Code, subject, result.Error.Message); err != nil {
			return err
		}
	}

	if result.Data != nil {
		if err := writeData(w, result.Data); err != nil {
			return err
		}
	}

	if result.Status != StatusError {
		return t.writeSummary(w, result)
	}
	return nil
}

func writeData(w io.Writer, data any) error {
	if r, ok := data.(TextRenderer); ok {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return r.RenderText(w)
	}
	dataJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("не удалось сериализовать Data: %w", err)
	}
	_, err = fmt.Fprintf(w, "Data: %s\n", dataJSON)
	return err
}

func (t *TextWriter) writeSummary(w io.Writer, result *Result) error {
	if _, err := fmt.Fprintf(w, "\n%s\n📊 Сводка\n%s\n", summaryDivider, summaryDivider); err != nil {
		return err
	}

	if result.Metadata != nil && result.Metadata.DurationMs > 0 {
		d := unitfmt.FormatValue(float64(result.Metadata.DurationMs), metric.UnitDurationMs)
		if _, err := fmt.Fprintf(w, "⏱️  Время выполнения: %s\n", d); err != nil {
			return err
		}
	}

	if result.Summary != nil {
		for _, m := range result.Summary.KeyMetrics {
			line := fmt.Sprintf("📈 %s: %s", m.Name, m.Value)
			if m.Unit != "" {
				line += " " + m.Unit
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if result.Summary.WarningsCount > 0 {
			if _, err := fmt.Fprintf(w, "\n⚠️  Предупреждений: %d\n", result.Summary.WarningsCount); err != nil {
				return err
			}
			for _, warn := range result.Summary.Warnings {
				if _, err := fmt.Fprintf(w, "   • %s\n", warn); err != nil {
					return err
				}
			}
		}
	}

	_, err := fmt.Fprintf(w, "%s\n", summaryDivider)
	return err
}

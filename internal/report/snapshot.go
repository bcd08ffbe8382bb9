package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
)

// SnapshotReport — отчёт по снимку без оценки: результат track-metrics
// или содержимое baseline.
type SnapshotReport struct {
	// Key — ключ хранилища, из которого прочитан снимок.
	Key      string           `json:"key,omitempty"`
	Found    bool             `json:"found"`
	Snapshot *metric.Snapshot `json:"snapshot,omitempty"`
	// PersistedKeys — ключи, под которыми снимок сохранён.
	PersistedKeys []string `json:"persistedKeys,omitempty"`
}

// RenderText выводит метрики снимка таблицей.
func (r *SnapshotReport) RenderText(w io.Writer) error {
	var b strings.Builder
	if !r.Found || r.Snapshot == nil {
		if r.Key != "" {
			fmt.Fprintf(&b, "Снимок по ключу %s не найден\n", r.Key)
		} else {
			b.WriteString("Снимок не найден\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	s := r.Snapshot
	fmt.Fprintf(&b, "Ревизия: %s\n", s.Revision)
	if s.Branch != "" {
		fmt.Fprintf(&b, "Ветка: %s\n", s.Branch)
	}
	if !s.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Время: %s\n", s.Timestamp.UTC().Format("2006-01-02 15:04:05Z"))
	}
	if r.Key != "" {
		fmt.Fprintf(&b, "Ключ: %s\n", r.Key)
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "МЕТРИКА\tЗНАЧЕНИЕ\tЕДИНИЦА")
	for _, m := range s.Sorted() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, formatMetric(m), m.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.PersistedKeys) > 0 {
		fmt.Fprintf(&b, "\nСнимок сохранён: %s\n", strings.Join(r.PersistedKeys, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

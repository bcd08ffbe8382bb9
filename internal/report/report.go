// Package report форматирует результаты quality gate для терминала и
// для Markdown-сводок (комментарий к PR, GitHub step summary).
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/entity/metric"
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/unitfmt"
)

// placeholder выводится вместо отсутствующего значения.
const placeholder = "—"

// GateReport — отчёт по одному прогону quality gate.
type GateReport struct {
	Revision string `json:"revision"`
	Branch   string `json:"branch,omitempty"`
	// Mode — режим quality gate. В режиме off Result пуст.
	Mode      string                  `json:"mode,omitempty"`
	Result    *gate.QualityGateResult `json:"result"`
	Samples   []gate.MetricSample     `json:"samples"`
	Warnings  []string                `json:"warnings,omitempty"`
	Persisted bool                    `json:"persisted"`
	// PersistedKeys — ключи, под которыми сохранён снимок.
	PersistedKeys []string `json:"persistedKeys,omitempty"`
}

// RenderText выводит отчёт в виде таблицы для терминала.
func (r *GateReport) RenderText(w io.Writer) error {
	if r.disabled() {
		_, err := fmt.Fprintf(w, "Quality gate: OFF\nОценка отключена (mode: off)\n")
		return err
	}
	if r.Result == nil {
		return fmt.Errorf("отчёт не содержит результата оценки")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Quality gate: %s\n", strings.ToUpper(r.Result.OverallStatus.String()))
	if note := r.softNote(); note != "" {
		fmt.Fprintf(&b, "%s\n", note)
	}
	fmt.Fprintf(&b, "Ревизия: %s\n", r.Revision)
	fmt.Fprintf(&b, "Baseline: %s\n\n", describeBaseline(r.Result.Baseline))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "МЕТРИКА\tТЕКУЩЕЕ\tBASELINE\tΔ\tΔ%\tСТАТУС")
	verdicts := verdictIndex(r.Result)
	for _, s := range r.Samples {
		cur, base, delta, pct := sampleCells(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Name, cur, base, delta, pct, verdicts.label(s.Name))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if failed := r.Result.Failed(gate.StatusWarn); len(failed) > 0 {
		b.WriteString("\nНарушения:\n")
		for _, mr := range failed {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", mr.Status, mr.Name, mr.Reason)
		}
	}
	if len(r.Result.RemovedMetrics) > 0 {
		b.WriteString("\nМетрики, которых больше нет:\n")
		for _, m := range r.Result.RemovedMetrics {
			fmt.Fprintf(&b, "  %s (было %s)\n", m.Name, unitfmt.FormatValue(m.Value, m.Unit))
		}
	}
	writeWarnings(&b, r.Warnings, "  ")
	if r.Persisted {
		fmt.Fprintf(&b, "\nСнимок сохранён: %s\n", strings.Join(r.PersistedKeys, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderMarkdown выводит отчёт в формате GitHub Flavored Markdown.
func (r *GateReport) RenderMarkdown(w io.Writer) error {
	if r.disabled() {
		_, err := io.WriteString(w, "## Quality gate: OFF\n\nОценка отключена (`mode: off`).\n")
		return err
	}
	if r.Result == nil {
		return fmt.Errorf("отчёт не содержит результата оценки")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s Quality gate: %s\n\n", statusIcon(r.Result.OverallStatus),
		strings.ToUpper(r.Result.OverallStatus.String()))
	if note := r.softNote(); note != "" {
		fmt.Fprintf(&b, "> %s\n\n", note)
	}
	fmt.Fprintf(&b, "Ревизия `%s`, baseline: %s\n\n", r.Revision, describeBaseline(r.Result.Baseline))

	b.WriteString("| Метрика | Текущее | Baseline | Δ | Δ% | Статус |\n")
	b.WriteString("|---|---:|---:|---:|---:|:---:|\n")
	verdicts := verdictIndex(r.Result)
	for _, s := range r.Samples {
		cur, base, delta, pct := sampleCells(s)
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s | %s |\n",
			s.Name, cur, base, delta, pct, verdicts.icon(s.Name))
	}

	if failed := r.Result.Failed(gate.StatusWarn); len(failed) > 0 {
		b.WriteString("\n<details open><summary>Нарушения</summary>\n\n")
		for _, mr := range failed {
			fmt.Fprintf(&b, "- %s `%s`: %s\n", statusIcon(mr.Status), mr.Name, escapeMarkdown(mr.Reason))
		}
		b.WriteString("\n</details>\n")
	}
	if len(r.Result.RemovedMetrics) > 0 {
		b.WriteString("\nМетрики, которых больше нет: ")
		names := make([]string, 0, len(r.Result.RemovedMetrics))
		for _, m := range r.Result.RemovedMetrics {
			names = append(names, "`"+m.Name+"`")
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	writeWarnings(&b, r.Warnings, "- ")

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *GateReport) disabled() bool {
	return r.Mode == "off" && r.Result == nil
}

// softNote поясняет, что в режиме soft нарушения не блокируют сборку.
func (r *GateReport) softNote() string {
	if r.Mode != "soft" || r.Result == nil || r.Result.OverallStatus == gate.StatusPass {
		return ""
	}
	return "Режим soft: нарушения не блокируют сборку"
}

// AppendMarkdown дописывает Markdown-отчёт в файл path, создавая его при
// необходимости. GITHUB_STEP_SUMMARY ожидает именно дозапись.
func (r *GateReport) AppendMarkdown(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, constants.FilePermReadWrite)
	if err != nil {
		return fmt.Errorf("не удалось открыть файл отчёта %s: %w", path, err)
	}
	if err := r.RenderMarkdown(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("не удалось записать отчёт в %s: %w", path, err)
	}
	return f.Close()
}

func sampleCells(s gate.MetricSample) (cur, base, delta, pct string) {
	cur = unitfmt.FormatValue(s.CurrentValue, s.Unit)
	base, delta, pct = placeholder, placeholder, placeholder
	if s.BaselineValue != nil {
		base = unitfmt.FormatValue(*s.BaselineValue, s.Unit)
	}
	if s.AbsoluteDelta != nil {
		delta = unitfmt.FormatDelta(*s.AbsoluteDelta, s.Unit)
	}
	if s.PercentDelta != nil {
		pct = unitfmt.FormatPercentDelta(*s.PercentDelta)
	}
	return cur, base, delta, pct
}

func describeBaseline(info gate.BaselineInfo) string {
	if !info.Found {
		return "не найден"
	}
	parts := []string{}
	if info.Revision != nil {
		parts = append(parts, *info.Revision)
	}
	if info.Timestamp != nil {
		parts = append(parts, info.Timestamp.UTC().Format("2006-01-02 15:04:05Z"))
	}
	if info.Key != "" {
		parts = append(parts, "ключ "+info.Key)
	}
	if len(parts) == 0 {
		return "найден"
	}
	return strings.Join(parts, ", ")
}

// verdicts — статус метрик по именам. Метрика без правил в индекс не попадает.
type verdicts map[string]gate.Status

func verdictIndex(res *gate.QualityGateResult) verdicts {
	v := make(verdicts, len(res.Metrics))
	for _, m := range res.Metrics {
		v[m.Name] = m.Status
	}
	return v
}

func (v verdicts) label(name string) string {
	if st, ok := v[name]; ok {
		return st.String()
	}
	return placeholder
}

func (v verdicts) icon(name string) string {
	if st, ok := v[name]; ok {
		return statusIcon(st)
	}
	return placeholder
}

func statusIcon(s gate.Status) string {
	switch s {
	case gate.StatusPass:
		return "✅"
	case gate.StatusWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

func writeWarnings(b *strings.Builder, warnings []string, bullet string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\nПредупреждения:\n")
	for _, w := range warnings {
		b.WriteString(bullet + w + "\n")
	}
}

// escapeMarkdown экранирует символы, ломающие таблицы и списки.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}

// formatMetric используется отчётами по снимкам.
func formatMetric(m metric.Metric) string {
	return unitfmt.FormatValue(m.Value, m.Unit)
}

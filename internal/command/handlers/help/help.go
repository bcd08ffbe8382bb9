// Package help реализует команду help для вывода списка доступных команд
// и переменных окружения, которыми управляется запуск.
package help

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/command"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/shared"
	"github.com/unentropy/unentropy-sub001/internal/constants"
	"github.com/unentropy/unentropy-sub001/internal/di"
)

func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Data содержит информацию о командах и опциях запуска.
type Data struct {
	Commands []CommandInfo `json:"commands"`
	Options  []OptionInfo  `json:"options"`
}

// CommandInfo описывает одну команду.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OptionInfo описывает переменную окружения.
type OptionInfo struct {
	Env         string `json:"env"`
	Description string `json:"description"`
}

// options — основные переменные окружения. Полный список секций QG_LOG_*,
// QG_METRICS_* и QG_TRACING_* описан в README.
var options = []OptionInfo{
	{Env: "INPUT_COMMAND", Description: "Команда (по умолчанию берётся из первого аргумента)"},
	{Env: "INPUT_CONFIG", Description: "Путь к файлу конфигурации (unentropy.yml)"},
	{Env: "INPUT_BRANCH", Description: "Ветка текущего прогона (GITHUB_HEAD_REF, GITHUB_REF_NAME)"},
	{Env: "INPUT_REVISION", Description: "Ревизия текущего прогона (GITHUB_SHA)"},
	{Env: "INPUT_BASELINE_BRANCH", Description: "Ветка baseline (переопределяет storage.baseline)"},
	{Env: "INPUT_BASELINE_REVISION", Description: "Ревизия baseline"},
	{Env: "INPUT_QUALITY_GATE_MODE", Description: "Режим quality gate: off, soft или hard (переопределяет qualityGate.mode)"},
	{Env: "INPUT_REPORT_PATH", Description: "Файл Markdown-отчёта (GITHUB_STEP_SUMMARY)"},
	{Env: "QG_OUTPUT_FORMAT", Description: "Формат вывода: text или json"},
	{Env: "QG_ENV_FILE", Description: "Файл .env с дополнительными переменными"},
}

// Handler обрабатывает команду help.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActHelp
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Вывод списка доступных команд"
}

// Execute собирает список команд из реестра и выводит результат.
func (h *Handler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()

	helpData := buildData()

	// Текстовый формат — без metadata (аналогично version).
	if !shared.IsJSON(app) {
		return helpData.writeText(os.Stdout)
	}

	result := shared.NewResult(ctx, app, constants.ActHelp, helpData, start)
	return shared.Writer(app).Write(os.Stdout, result)
}

// buildData собирает информацию обо всех зарегистрированных командах.
func buildData() *Data {
	names := command.Names()
	data := &Data{
		Commands: make([]CommandInfo, 0, len(names)),
		Options:  options,
	}
	for _, name := range names {
		handler, ok := command.Get(name)
		if !ok {
			continue
		}
		data.Commands = append(data.Commands, CommandInfo{
			Name:        name,
			Description: handler.Description(),
		})
	}
	return data
}

// writeText выводит информацию о командах в человекочитаемом формате.
func (d *Data) writeText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(constants.AppName + " — quality gate для метрик сборки\n")
	sb.WriteString("\nИспользование: " + constants.AppName + " <команда>\n")
	sb.WriteString("\nКоманды:\n")

	maxLen := 0
	for _, cmd := range d.Commands {
		maxLen = max(maxLen, len(cmd.Name))
	}
	for _, cmd := range d.Commands {
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxLen, cmd.Name, cmd.Description)
	}

	sb.WriteString("\nОпции:\n")
	envLen := 0
	for _, opt := range d.Options {
		envLen = max(envLen, len(opt.Env))
	}
	for _, opt := range d.Options {
		fmt.Fprintf(&sb, "  %-*s  %s\n", envLen, opt.Env, opt.Description)
	}

	_, err := fmt.Fprint(w, sb.String())
	return err
}

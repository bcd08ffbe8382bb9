// Package runner предоставляет функциональность для выполнения внешних команд.
// Используется сборщиком метрик: команда возвращает stdout при успехе,
// а при ненулевом коде завершения — ExitError с stderr и кодом выхода.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/unentropy/unentropy-sub001/internal/pkg/logging"
)

const maxConsoleOut = 2048

// waitDelay ограничивает ожидание закрытия pipe-ов после отмены команды.
const waitDelay = 500 * time.Millisecond

// DefaultShell — интерпретатор для команд, заданных строкой.
const DefaultShell = "sh"

// Command описывает запуск внешней команды.
// Если задан Script, он выполняется через Shell -c, иначе запускается Name с Args.
type Command struct {
	Name    string
	Args    []string
	Script  string
	WorkDir string
	// Env дополняет окружение текущего процесса (формат KEY=VALUE).
	Env []string
	// Stdin передаётся команде на стандартный ввод.
	Stdin []byte
}

// String возвращает команду в виде для логов.
func (c Command) String() string {
	if c.Script != "" {
		return c.Script
	}
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result содержит захваченный вывод завершившейся команды.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError возвращается, когда команда завершилась с ненулевым кодом
// или не смогла запуститься.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

// Error реализует интерфейс error.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("команда %q завершилась с кодом %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + TrimOut([]byte(stderr))
	}
	return msg
}

// Unwrap возвращает исходную ошибку exec.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Executor выполняет внешние команды.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ShellExecutor — Executor на основе os/exec.
type ShellExecutor struct {
	Shell  string
	logger logging.Logger
}

// NewShellExecutor создаёт ShellExecutor. При nil logger используется NopLogger.
func NewShellExecutor(logger logging.Logger) *ShellExecutor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ShellExecutor{Shell: DefaultShell, logger: logger}
}

// Run выполняет команду и возвращает её вывод.
// Отмена ctx прерывает процесс; в этом случае возвращается ошибка контекста.
func (e *ShellExecutor) Run(ctx context.Context, c Command) (*Result, error) {
	name, args, err := e.argv(c)
	if err != nil {
		return nil, err
	}

	// #nosec G204 - команды метрик задаются владельцем репозитория в конфигурации
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.WorkDir
	// Дочерние процессы shell могут удерживать pipe после отмены ctx.
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = appendEnviron(c.Env...)
	}

	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Запуск команды", "command", c.String(), "workdir", c.WorkDir)

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		e.logger.Warn("Команда завершилась с ошибкой",
			"command", c.String(),
			"exit_code", exitCode,
			"stderr", TrimOut(stderr.Bytes()),
		)
		return res, &ExitError{
			Command:  c.String(),
			ExitCode: exitCode,
			Stderr:   res.Stderr,
			Err:      runErr,
		}
	}

	e.logger.Debug("Команда выполнена",
		"command", c.String(),
		"duration_ms", res.Duration.Milliseconds(),
		"stdout", TrimOut(stdout.Bytes()),
	)
	return res, nil
}

func (e *ShellExecutor) argv(c Command) (string, []string, error) {
	if c.Script != "" {
		shell := e.Shell
		if shell == "" {
			shell = DefaultShell
		}
		return shell, []string{"-c", c.Script}, nil
	}
	if c.Name == "" {
		return "", nil, errors.New("executable path is empty")
	}
	return c.Name, c.Args, nil
}

// appendEnviron возвращает окружение процесса, дополненное kv.
// Существующие переменные с тем же именем перезаписываются.
func appendEnviron(kv ...string) []string {
	env := os.Environ()
	for _, newVar := range kv {
		eqIndex := strings.Index(newVar, "=")
		if eqIndex == -1 {
			continue
		}
		key := newVar[:eqIndex]
		found := false
		for i, v := range env {
			if strings.HasPrefix(v, key+"=") {
				env[i] = newVar
				found = true
				break
			}
		}
		if !found {
			env = append(env, newVar)
		}
	}
	return env
}

// TrimOut обрезает вывод команды для логов.
func TrimOut(b []byte) string {
	if len(b) < maxConsoleOut {
		return string(b)
	}
	return string(b[:1020]) + "\n********\n" + string(b[len(b)-1020:])
}

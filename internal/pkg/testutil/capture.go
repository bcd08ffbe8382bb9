// Package testutil содержит общие утилиты для тестов команд.
package testutil

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CaptureStdout выполняет fn, перехватывая stdout, и возвращает вывод.
// Pipe читается параллельно: отчёт quality gate может не поместиться в буфер pipe.
func CaptureStdout(t *testing.T, fn func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err, "не удалось создать pipe для stdout")

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.Bytes()
	}()

	os.Stdout = w
	func() {
		defer func() { os.Stdout = oldStdout }()
		fn()
	}()

	require.NoError(t, w.Close(), "не удалось закрыть pipe stdout")
	out := <-done
	_ = r.Close()
	return string(out)
}

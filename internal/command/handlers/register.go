// Package handlers регистрирует все обработчики команд явно, без init().
package handlers

import (
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/baselinehandler"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/help"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/qualitygatehandler"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/trackmetricshandler"
	"github.com/unentropy/unentropy-sub001/internal/command/handlers/version"
)

// RegisterAll регистрирует все обработчики в глобальном реестре.
// Вызывается один раз из main() до использования команд.
func RegisterAll() error {
	for _, register := range []func() error{
		baselinehandler.RegisterCmd,
		help.RegisterCmd,
		qualitygatehandler.RegisterCmd,
		trackmetricshandler.RegisterCmd,
		version.RegisterCmd,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

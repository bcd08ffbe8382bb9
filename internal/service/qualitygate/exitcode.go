package qualitygate

import (
	"github.com/unentropy/unentropy-sub001/internal/gate"
	"github.com/unentropy/unentropy-sub001/internal/pkg/apperrors"
)

// Коды завершения процесса.
const (
	ExitPass  = 0
	ExitFail  = 1
	ExitError = 2
)

// ExitCode отображает результат прогона в код завершения:
// 0 — pass, warn без warnAsFail или любой статус в режимах soft и off;
// 1 — fail или warn с warnAsFail в режиме hard, а также ошибка GATE.FAILED;
// 2 — ошибка конфигурации, сбора или хранилища.
func ExitCode(status gate.Status, err error, mode Mode, warnAsFail bool) int {
	if err != nil {
		if apperrors.IsGateFailure(err) {
			return ExitFail
		}
		return ExitError
	}
	if mode.Blocks(status, warnAsFail) {
		return ExitFail
	}
	return ExitPass
}

// Package constants содержит константы, общие для команд и вывода.
package constants

// Версия и коммит подставляются при сборке через -ldflags:
//
//	go build -ldflags "-X github.com/unentropy/unentropy-sub001/internal/constants.Version=1.2.0 \
//	    -X github.com/unentropy/unentropy-sub001/internal/constants.PreCommitHash=$(git rev-parse --short HEAD)"
var (
	// Version — версия приложения. "dev" для локальных сборок.
	Version = "dev"
	// PreCommitHash — хеш коммита, из которого собран бинарник.
	PreCommitHash = "unknown"
)

// APIVersion — версия формата JSON-вывода команд.
const APIVersion = "v1"

// AppName используется в тексте помощи и логах.
const AppName = "unentropy"

// Имена команд.
const (
	// ActQualityGate — сбор метрик, сравнение с baseline и оценка правил.
	ActQualityGate = "quality-gate"
	// ActTrackMetrics — сбор метрик и сохранение снимка без оценки.
	ActTrackMetrics = "track-metrics"
	// ActBaseline — вывод baseline для настроенной цели сравнения.
	ActBaseline = "baseline"
	// ActVersion — вывод версии.
	ActVersion = "version"
	// ActHelp — список команд.
	ActHelp = "help"
)

// Сообщения для логов завершения.
const (
	// MsgAppExit — сообщение о завершении работы программы.
	MsgAppExit = "Завершение работы программы"
	// MsgErrProcessing — ключ лога с контекстом обработки ошибки.
	MsgErrProcessing = "Обработка ошибки"
)

package output

import "io"

// Writer форматирует результат команды.
// Реализации: JSONWriter, TextWriter.
type Writer interface {
	Write(w io.Writer, result *Result) error
}

// TextRenderer реализуется данными команды, у которых есть собственное
// текстовое представление. Без него TextWriter выводит Data как JSON.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

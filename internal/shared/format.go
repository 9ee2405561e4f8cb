package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Sprintf formats with locale-aware digit grouping for messages shown to cashiers.
func Sprintf(format string, args ...any) string {
	return printer.Sprintf(format, args...)
}

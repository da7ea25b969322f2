package format

import "fmt"

// Row renders "<marker> <name>: <local> <unit>", followed by " / <usd>$"
// when usd is non-nil.
func Row(marker, name string, local float64, usd *float64, lang string) string {
	row := fmt.Sprintf("%s %s: %s %s", marker, name, Number(local, lang), LocalUnit(lang))
	if usd != nil {
		row += fmt.Sprintf(" / %s$", Number(*usd, lang))
	}
	return row
}

// Unavailable renders the row of a symbol without a price. An empty
// message yields the bare marker and name.
func Unavailable(marker, name, message string) string {
	if message == "" {
		return fmt.Sprintf("%s %s", marker, name)
	}
	return fmt.Sprintf("%s %s: %s", marker, name, message)
}

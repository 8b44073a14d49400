package format

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// Escape sequences used by the renderers. All are empty when colour is off.
var (
	Reset   string
	Bold    string
	Dim     string
	Red     string
	Green   string
	Yellow  string
	Blue    string
	Magenta string
	Cyan    string
)

func init() {
	SetColor(ColorEnabled(os.Stdout))
}

// SetColor switches every escape sequence on or off.
func SetColor(on bool) {
	if !on {
		Reset, Bold, Dim = "", "", ""
		Red, Green, Yellow, Blue, Magenta, Cyan = "", "", "", "", "", ""
		return
	}
	Reset, Bold, Dim = "\033[0m", "\033[1m", "\033[2m"
	Red, Green, Yellow = "\033[31m", "\033[32m", "\033[33m"
	Blue, Magenta, Cyan = "\033[34m", "\033[35m", "\033[36m"
}

// DisableColors is SetColor(false).
func DisableColors() {
	SetColor(false)
}

// ColorEnabled reports whether escapes should be written to f. NO_COLOR and
// TERM=dumb turn colour off; otherwise f must be a terminal.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TermWidth returns $COLUMNS when set, else the width of stdout, else 80.
func TermWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

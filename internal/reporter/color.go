package reporter

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ppiankov/ctxrestore/internal/analyzer"
)

// ANSI escape codes for severities and headings.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
	colorBold   = "\033[1m"
)

var severityColor = map[analyzer.Severity]string{
	analyzer.SeverityHigh:   colorRed,
	analyzer.SeverityMedium: colorYellow,
	analyzer.SeverityLow:    colorCyan,
	analyzer.SeverityInfo:   colorGray,
}

// isTTY reports whether w is a terminal. NO_COLOR disables colors.
func isTTY(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

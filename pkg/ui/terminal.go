package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Banner printed at the start of an interactive run
const Banner = `
  ┌─────────────────────────────────────────┐
  │  useretl · random user batch ingestion  │
  └─────────────────────────────────────────┘
`

var (
	mu        sync.RWMutex
	out       io.Writer = os.Stdout
	colorOn             = true
	quietMode           = false
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes when color is enabled
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !ColorEnabled() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetOutput redirects every Print helper to w
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Output returns the writer the Print helpers use
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	colorOn = enabled
}

// ColorEnabled reports whether ANSI colors are emitted
func ColorEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return colorOn
}

// SetQuietMode suppresses informational output; errors are still printed
func SetQuietMode(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietMode = quiet
}

// IsQuietMode reports whether informational output is suppressed
func IsQuietMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return quietMode
}

// PrintBanner prints the banner in cyan
func PrintBanner() {
	if IsQuietMode() {
		return
	}
	fmt.Fprint(Output(), Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output(), Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output(), Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(Output(), Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(Output(), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if IsQuietMode() {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(Output(), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output(), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintln(Output(), Magenta(msg))
}

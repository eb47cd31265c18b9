package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorEnabled() bool {
	if noColor {
		return false
	}
	// https://no-color.org/
	_, set := os.LookupEnv("NO_COLOR")
	return !set
}

func colorize(color, text string) string {
	if !colorEnabled() {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), val)
}

func printStep(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// printHeading writes a bold report section header to stdout, where the
// report body goes; status lines go to stderr.
func printHeading(text string) {
	fmt.Println(colorize(colorBold, text))
}

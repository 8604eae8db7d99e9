// Package ui holds terminal styling for CLI output.
package ui

import (
	"os"
	"sync"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

var (
	colorOnce sync.Once
	colorOn   bool
)

// Enabled reports whether styling is applied. NO_COLOR disables it, as does
// TERM=dumb.
func Enabled() bool {
	colorOnce.Do(func() {
		_, noColor := os.LookupEnv("NO_COLOR")
		colorOn = !noColor && os.Getenv("TERM") != "dumb"
	})
	return colorOn
}

func style(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + ColorReset
}

func Bold(s string) string    { return style(ColorBold+ColorWhite, s) }
func Heading(s string) string { return style(ColorBold+ColorCyan, s) }
func Accent(s string) string  { return style(ColorCyan, s) }
func Dim(s string) string     { return style(ColorDim, s) }
func Warn(s string) string    { return style(ColorYellow, s) }
func Success(s string) string { return style(ColorGreen, s) }
func Error(s string) string   { return style(ColorRed, s) }

// Info is dimmed yellow, for hints
func Info(s string) string { return style(ColorDim+ColorYellow, s) }

// Label renders "name:" in bold followed by a value
func Label(name, value string) string {
	return style(ColorBold, name+":") + " " + value
}

package main

import (
	"fmt"
	"math"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// ansiClear wipes the terminal between watch refreshes.
const ansiClear = "\033[2J\033[H"

func colorize(color, text string) string {
	if noColor || color == "" {
		return text
	}
	return color + text + colorReset
}

func severityColor(severity string) string {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return colorRed
	case "medium":
		return colorYellow
	case "low":
		return colorGreen
	}
	return ""
}

func statusColor(status string) string {
	switch strings.ToLower(status) {
	case "enrolling", "active", "completed":
		return colorGreen
	case "paused", "on_hold", "pending":
		return colorYellow
	case "closed", "terminated", "error":
		return colorRed
	}
	return ""
}

// Status lines go to stderr so rendered dashboards own stdout and stay
// pipeable.

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// formatUSD renders dollar amounts at dashboard precision: billions and
// millions keep a decimal, anything under a thousand prints whole.
func formatUSD(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.0fK", v/1e3)
	}
	return fmt.Sprintf("$%.0f", v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Package output provides user-facing terminal output helpers for glidepath.
// All user-visible messages go through this package so tests and CI callers
// can capture or suppress them.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	// Colors and styles
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
	bold   = color.New(color.Bold)

	// Output writers (can be overridden for testing)
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	// Stdin reader (can be overridden for testing)
	Stdin io.Reader = os.Stdin

	// NonInteractive disables all prompts; confirmation gates answer false.
	// Set for CI callers that must never block on a terminal.
	NonInteractive = false

	// Disable colors if not TTY or NO_COLOR is set
	noColor = os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd())
)

func init() {
	if noColor {
		color.NoColor = true
	}
}

// Success prints a success message with a checkmark
// Example: ✓ Cluster ready
func Success(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, green.Sprint("✓")+" "+format+"\n", a...)
}

// Info prints an informational message with an arrow
// Example: → Creating VPC network...
func Info(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, cyan.Sprint("→")+" "+format+"\n", a...)
}

// Warning prints a warning message with a warning symbol
// Example: ⚠ Ingress address not yet assigned
func Warning(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, yellow.Sprint("⚠")+" "+format+"\n", a...)
}

// Error prints an error message with an X symbol
// Example: ✗ Failed to create cluster: permission denied
func Error(format string, a ...interface{}) {
	fmt.Fprintf(Stdout, red.Sprint("✗")+" "+format+"\n", a...)
}

// Step prints a step in a multi-step process
// Example: [2/9] Waiting for cluster
func Step(step int, total int, message string) {
	gray.Fprintf(Stdout, "[%d/%d] ", step, total)
	fmt.Fprintln(Stdout, message)
}

// StepSuccess prints a successful step completion
func StepSuccess(step int, total int, message string) {
	gray.Fprintf(Stdout, "[%d/%d] ", step, total)
	fmt.Fprintf(Stdout, "%s %s\n", green.Sprint("✓"), message)
}

// StepError prints a failed step
func StepError(step int, total int, message string) {
	gray.Fprintf(Stdout, "[%d/%d] ", step, total)
	fmt.Fprintf(Stdout, "%s %s\n", red.Sprint("✗"), message)
}

// Header prints a section header with a separator line
func Header(text string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, bold.Sprint(text))
	fmt.Fprintln(Stdout, gray.Sprint(strings.Repeat("━", 50)))
}

// Subheader prints a smaller section header
func Subheader(text string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, cyan.Sprint(text))
	fmt.Fprintln(Stdout, gray.Sprint(strings.Repeat("─", len(text))))
}

// KeyValue prints a key-value pair with indentation
// Example:   Cluster name: dev-n8n-cluster
func KeyValue(key, value string) {
	fmt.Fprintf(Stdout, "  %s: %s\n", gray.Sprint(key), value)
}

// Blank prints a blank line
func Blank() {
	fmt.Fprintln(Stdout)
}

// Bold returns the text in bold
func Bold(text string) string {
	return bold.Sprint(text)
}

// ConfirmPhrase is the confirmation gate for irreversible destruction: the
// user must type requiredPhrase exactly. Returns false without prompting when
// NonInteractive is set, so automated callers can never acknowledge data loss
// by accident.
func ConfirmPhrase(message, requiredPhrase string) bool {
	if NonInteractive {
		Warning("non-interactive mode: confirmation refused")
		return false
	}

	fmt.Fprintln(Stdout, yellow.Sprint("⚠")+" "+message)
	fmt.Fprintf(Stdout, "Type %s to confirm: ", bold.Sprint(requiredPhrase))

	response := readLine()
	return strings.TrimSpace(response) == requiredPhrase
}

// StatusBadge returns a colored status badge for a resource state
func StatusBadge(status string) string {
	switch strings.ToLower(status) {
	case "ready", "active", "running":
		return green.Sprint("● " + status)
	case "creating", "provisioning", "deleting", "pending":
		return yellow.Sprint("● " + status)
	case "degraded", "failed", "error", "blocked":
		return red.Sprint("● " + status)
	case "absent", "deleted":
		return gray.Sprint("○ " + status)
	}
	return gray.Sprint("● " + status)
}

func readLine() string {
	reader := bufio.NewReader(Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return line
}

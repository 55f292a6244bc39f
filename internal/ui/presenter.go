package ui

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
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Presenter is the single presentation capability the core flow depends
// on. The flow never knows whether a plain terminal or an animated gauge
// is active.
type Presenter interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	// Confirm asks a yes/no question and blocks for the answer.
	Confirm(prompt string) bool
	// Progress announces step position before the step body runs.
	Progress(step, total int, name string)
	// RunStep executes fn under this presenter's step rendering. The
	// caller always observes fn's real error, regardless of animation.
	RunStep(name string, fn func() error) error
}

// PlainPresenter renders colored line output without animation.
type PlainPresenter struct {
	out       io.Writer
	in        io.Reader
	assumeYes bool
}

// NewPlainPresenter creates a presenter writing to stdout.
func NewPlainPresenter(assumeYes bool) *PlainPresenter {
	return &PlainPresenter{out: os.Stdout, in: os.Stdin, assumeYes: assumeYes}
}

// NewPlainPresenterWith creates a presenter with explicit streams (tests).
func NewPlainPresenterWith(out io.Writer, in io.Reader, assumeYes bool) *PlainPresenter {
	return &PlainPresenter{out: out, in: in, assumeYes: assumeYes}
}

// Info prints an informational line.
func (p *PlainPresenter) Info(msg string) {
	fmt.Fprintf(p.out, "%s %s\n", cyan("•"), msg)
}

// Success prints a success line.
func (p *PlainPresenter) Success(msg string) {
	fmt.Fprintf(p.out, "%s %s\n", green("✔"), msg)
}

// Warning prints a non-fatal warning line.
func (p *PlainPresenter) Warning(msg string) {
	fmt.Fprintf(p.out, "%s %s\n", yellow("⚠"), msg)
}

// Error prints an error line.
func (p *PlainPresenter) Error(msg string) {
	fmt.Fprintf(p.out, "%s %s\n", red("✖"), msg)
}

// Confirm asks a yes/no question. Only "y" and "yes" (case-insensitive)
// count as consent; everything else, including read errors, declines.
func (p *PlainPresenter) Confirm(prompt string) bool {
	if p.assumeYes {
		fmt.Fprintf(p.out, "%s [y/N]: yes (assumed)\n", prompt)
		return true
	}

	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)

	reader := bufio.NewReader(p.in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Progress prints the step counter.
func (p *PlainPresenter) Progress(step, total int, name string) {
	fmt.Fprintf(p.out, "%s [%d/%d] %s\n", cyan("▶"), step, total, name)
}

// RunStep runs fn synchronously.
func (p *PlainPresenter) RunStep(name string, fn func() error) error {
	return fn()
}

// Interactive reports whether stdout is a terminal. Gauge animation is
// pointless (and garbles logs) when output is piped.
func Interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// NewPresenter selects the presentation for a run: the animated gauge
// when requested on a real terminal, plain lines otherwise.
func NewPresenter(useGauge, assumeYes bool) Presenter {
	if useGauge && Interactive() {
		return NewGaugePresenter(assumeYes)
	}
	return NewPlainPresenter(assumeYes)
}

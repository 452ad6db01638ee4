// Package presenter renders librarian output for the terminal: decisions,
// ranked candidates, execution plans and status messages, colored when the
// terminal supports it.
package presenter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/jingkaihe/librarian/pkg/plan"
	"github.com/jingkaihe/librarian/pkg/score"
)

// Presenter is the output surface used by the CLI commands
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Decision(d score.Decision)
	Candidates(candidates []score.ScoredSkill)
	Plan(p *plan.ExecutionPlan)
	Separator()
}

// ColorMode selects when output is colored
type ColorMode int

const (
	// ColorAuto leaves the decision to the terminal detection in fatih/color
	ColorAuto ColorMode = iota
	// ColorAlways colors output even when it is not a terminal
	ColorAlways
	// ColorNever disables color
	ColorNever
)

// TerminalPresenter writes to an output and an error stream and reads
// answers from an input stream.
type TerminalPresenter struct {
	out   io.Writer
	err   io.Writer
	in    *bufio.Reader
	quiet bool
}

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	accentColor  = color.New(color.FgCyan)
	askColor     = color.New(color.FgCyan, color.Bold)
	headerColor  = color.New(color.Bold)
	faintColor   = color.New(color.Faint)
)

// New returns a presenter on stdout, stderr and stdin. The color mode comes
// from NO_COLOR or LIBRARIAN_COLOR.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions returns a presenter writing to out and errOut. The color
// mode is process wide.
func NewWithOptions(out, errOut io.Writer, mode ColorMode) *TerminalPresenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &TerminalPresenter{
		out: out,
		err: errOut,
		in:  bufio.NewReader(os.Stdin),
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("LIBRARIAN_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	}
	return ColorAuto
}

// SetInput replaces the reader used by PromptLine
func (p *TerminalPresenter) SetInput(r io.Reader) {
	p.in = bufio.NewReader(r)
}

// SetQuiet suppresses everything but errors
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

func (p *TerminalPresenter) printf(c *color.Color, format string, args ...any) {
	if p.quiet {
		return
	}
	if c == nil {
		fmt.Fprintf(p.out, format, args...)
		return
	}
	c.Fprintf(p.out, format, args...)
}

// Error writes err to the error stream, prefixed with context when given.
// Errors are shown in quiet mode too.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	if context != "" {
		errorColor.Fprintf(p.err, "[ERROR] %s: %v\n", context, err)
		return
	}
	errorColor.Fprintf(p.err, "[ERROR] %v\n", err)
}

// Success writes a message marked with a check
func (p *TerminalPresenter) Success(message string) {
	p.printf(successColor, "✓ %s\n", message)
}

// Warning writes a message marked with a warning sign
func (p *TerminalPresenter) Warning(message string) {
	p.printf(warningColor, "⚠ %s\n", message)
}

// Info writes a plain message
func (p *TerminalPresenter) Info(message string) {
	p.printf(nil, "%s\n", message)
}

// Section writes an underlined header
func (p *TerminalPresenter) Section(title string) {
	p.printf(headerColor, "%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// Separator writes a faint rule between REPL turns
func (p *TerminalPresenter) Separator() {
	p.printf(faintColor, "%s\n", strings.Repeat("-", 60))
}

// PromptLine writes question, with options when given, and reads one
// trimmed line. It returns io.EOF once the input is exhausted; a final line
// without a newline is still returned.
func (p *TerminalPresenter) PromptLine(question string, options ...string) (string, error) {
	if len(options) > 0 {
		accentColor.Fprintf(p.out, "%s [%s]: ", question, strings.Join(options, "/"))
	} else {
		accentColor.Fprintf(p.out, "%s: ", question)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Decision writes a policy decision: auto selections as chosen, confirm
// options numbered for a choice, clarify as a request to rephrase.
func (p *TerminalPresenter) Decision(d score.Decision) {
	switch d.Kind {
	case score.Auto:
		p.Success("selected " + formatSelections(d.Selections))
	case score.Confirm:
		p.printf(askColor, "? did you mean one of:\n")
		for i, s := range d.Selections {
			p.printf(nil, "  %d) %s (%.2f, %s)\n", i+1, s.SkillID, s.Confidence, s.MatchType)
		}
	default:
		p.Warning("no skill matched confidently; please rephrase the request")
	}
}

// Candidates writes the ranked candidate table
func (p *TerminalPresenter) Candidates(candidates []score.ScoredSkill) {
	if len(candidates) == 0 {
		return
	}
	p.Section("Candidates")
	for _, c := range candidates {
		p.printf(nil, "%-24s %.2f  %s via %q\n", c.SkillID, c.Confidence, c.MatchType, c.Token)
	}
}

// Plan writes an execution plan one phase per line
func (p *TerminalPresenter) Plan(ep *plan.ExecutionPlan) {
	if ep == nil {
		return
	}
	for i, phase := range ep.Phases {
		p.printf(accentColor, "phase %d: ", i+1)
		p.printf(nil, "%s\n", strings.Join(phase, ", "))
	}
}

func formatSelections(selections []score.ScoredSkill) string {
	parts := make([]string, len(selections))
	for i, s := range selections {
		parts[i] = fmt.Sprintf("%s (%.2f, %s)", s.SkillID, s.Confidence, s.MatchType)
	}
	return strings.Join(parts, ", ")
}

var defaultPresenter = New()

// Error writes an error through the default presenter
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success writes a success message through the default presenter
func Success(message string) { defaultPresenter.Success(message) }

// Warning writes a warning through the default presenter
func Warning(message string) { defaultPresenter.Warning(message) }

// Info writes a message through the default presenter
func Info(message string) { defaultPresenter.Info(message) }

// Decision writes a decision through the default presenter
func Decision(d score.Decision) { defaultPresenter.Decision(d) }

// Candidates writes the candidate table through the default presenter
func Candidates(candidates []score.ScoredSkill) { defaultPresenter.Candidates(candidates) }

// Plan writes an execution plan through the default presenter
func Plan(p *plan.ExecutionPlan) { defaultPresenter.Plan(p) }

// SetQuiet toggles quiet mode on the default presenter
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }

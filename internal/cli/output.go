// Package cli provides the command-line interface for the strategy engine.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"option-strategist/internal/models"
)

// Text styles for terminal output
var (
	ColorRed    = []color.Attribute{color.FgRed}
	ColorGreen  = []color.Attribute{color.FgGreen}
	ColorYellow = []color.Attribute{color.FgYellow}
	ColorCyan   = []color.Attribute{color.FgCyan}
	ColorBold   = []color.Attribute{color.Bold}
	ColorDim    = []color.Attribute{color.Faint}
)

// ansiPattern matches SGR escape sequences.
var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && cmd.OutOrStdout() == os.Stdout && isTerminal(),
	}
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(style []color.Attribute, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.ColoredString(style, fmt.Sprintf(format, args...)))
}

// ColoredString returns a styled string without newline.
func (o *Output) ColoredString(style []color.Attribute, text string) string {
	c := color.New(style...)
	if o.colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

// Green returns green colored text.
func (o *Output) Green(text string) string {
	return o.ColoredString(ColorGreen, text)
}

// Red returns red colored text.
func (o *Output) Red(text string) string {
	return o.ColoredString(ColorRed, text)
}

// Yellow returns yellow colored text.
func (o *Output) Yellow(text string) string {
	return o.ColoredString(ColorYellow, text)
}

// DimText returns dimmed text.
func (o *Output) DimText(text string) string {
	return o.ColoredString(ColorDim, text)
}

// Direction colors a strategy direction.
func (o *Output) Direction(d models.Direction) string {
	switch d {
	case models.DirectionBullish:
		return o.Green("▲ " + string(d))
	case models.DirectionBearish:
		return o.Red("▼ " + string(d))
	default:
		return o.Yellow("● " + string(d))
	}
}

// NetCost formats the opening cash flow, green for a credit.
func (o *Output) NetCost(net decimal.Decimal, credit bool) string {
	if credit {
		return o.Green(FormatUSD(net.Abs()) + " credit")
	}
	return o.Red(FormatUSD(net.Abs()) + " debit")
}

// Figure colors a payoff figure. Sentinels are dimmed.
func (o *Output) Figure(f models.Figure, style []color.Attribute) string {
	if !f.IsNumeric() {
		return o.DimText(f.String())
	}
	return o.ColoredString(style, FormatUSD(f.Value))
}

// Correction marks a leg field that was snapped onto the chain.
func (o *Output) Correction(value string, corrected bool, requested string) string {
	if !corrected {
		return value
	}
	return o.Yellow(value + "*") + o.DimText(" (was "+requested+")")
}

// Table represents a simple table for output.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a new table.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		output:  output,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], displayWidth(cell))
			}
		}
	}

	t.printRow(t.headers, widths, true)
	t.printSeparator(widths)
	for _, row := range t.rows {
		t.printRow(row, widths, false)
	}
}

func (t *Table) printRow(cells []string, widths []int, isHeader bool) {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		padded := cell + strings.Repeat(" ", max(0, widths[i]-displayWidth(cell)))
		if isHeader {
			padded = t.output.ColoredString(ColorBold, padded)
		}
		parts = append(parts, padded)
	}
	t.output.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}

func (t *Table) printSeparator(widths []int) {
	var parts []string
	for _, w := range widths {
		parts = append(parts, strings.Repeat("─", w))
	}
	t.output.Println(t.output.DimText(strings.Join(parts, "──")))
}

// stripANSI removes ANSI escape codes from a string.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// displayWidth counts runes so box-drawing and arrow glyphs take one column.
func displayWidth(s string) int {
	return len([]rune(stripANSI(s)))
}

// Box draws a box around content.
func (o *Output) Box(title string, content []string) {
	inner := displayWidth(title)
	for _, line := range content {
		inner = max(inner, displayWidth(line))
	}

	border := strings.Repeat("─", inner+2)
	pad := func(s string) string {
		return s + strings.Repeat(" ", inner-displayWidth(s))
	}

	o.Printf("%s\n", o.DimText("┌"+border+"┐"))
	o.Printf("%s %s %s\n", o.DimText("│"), o.ColoredString(ColorBold, pad(title)), o.DimText("│"))
	o.Printf("%s\n", o.DimText("├"+border+"┤"))
	for _, line := range content {
		o.Printf("%s %s %s\n", o.DimText("│"), pad(line), o.DimText("│"))
	}
	o.Printf("%s\n", o.DimText("└"+border+"┘"))
}

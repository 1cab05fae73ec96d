package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/render"
	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// terminal is the CLI surface: tables go to stdout, notifications and
// prompts to stderr, answers come from stdin.
type terminal struct {
	out      io.Writer
	errOut   io.Writer
	in       *bufio.Reader
	format   string
	renderer render.Renderer
}

func newTerminal() *terminal {
	format := getOutputFormat()
	return &terminal{
		out:      stdout,
		errOut:   stderr,
		in:       bufio.NewReader(stdin),
		format:   format,
		renderer: render.NewRenderer(format),
	}
}

// Replace implements resourcelist.View
func (t *terminal) Replace(kind resourcelist.Kind, rows []render.Row) error {
	if t.format == "table" || t.format == "" {
		fmt.Fprintf(t.out, "%s (%d)\n", kind.Title, len(rows))
	}
	return t.renderer.Render(t.out, kind.Template, rows)
}

// Notify implements resourcelist.Notifier
func (t *terminal) Notify(message string) {
	fmt.Fprintf(t.errOut, "! %s\n", message)
}

// ShowSchedule implements controller.Surface
func (t *terminal) ShowSchedule(s client.Schedule) {
	if structured() {
		return
	}
	for _, line := range controller.ScheduleLines(s) {
		fmt.Fprintln(t.out, line)
	}
}

// ShowOptions implements controller.Surface
func (t *terminal) ShowOptions(field string, values []string) {
	if structured() {
		return
	}
	list := strings.Join(values, ", ")
	if list == "" {
		list = "(none active)"
	}
	fmt.Fprintf(t.out, "Active %ss: %s\n", field, list)
}

// ShowLog implements controller.Surface
func (t *terminal) ShowLog(name, text string) {
	fmt.Fprintf(t.out, "== %s log ==\n%s\n", name, strings.TrimRight(text, "\n"))
}

// ShowSettings implements controller.Surface
func (t *terminal) ShowSettings(s client.Settings) {
	if structured() {
		_ = printOutput(s)
		return
	}
	tbl := NewTable("SETTING", "HOURS")
	tbl.writer = t.out
	tbl.AddRow("Repository check interval", strconv.Itoa(s.RepoInterval))
	tbl.AddRow("Server check interval", strconv.Itoa(s.ServerInterval))
	tbl.Render()
}

// Prompt implements controller.Prompter
func (t *terminal) Prompt(label string) (string, error) {
	fmt.Fprintf(t.errOut, "%s: ", label)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptSecret implements controller.Prompter. Input is hidden when stdin
// is a terminal.
func (t *terminal) PromptSecret(label string) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(t.errOut, "%s: ", label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(t.errOut)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return t.Prompt(label)
}

// checkIndicator shows the state of a check control on stderr
type checkIndicator struct {
	w       io.Writer
	enabled bool
}

func newCheckIndicator() *checkIndicator {
	return &checkIndicator{w: stderr, enabled: true}
}

// SetEnabled implements resourcelist.Control
func (c *checkIndicator) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// SetLabel implements resourcelist.Control
func (c *checkIndicator) SetLabel(label string) {
	if !c.enabled {
		fmt.Fprintln(c.w, label)
	}
}

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/frederic-klein/condascan/internal/evaluate"
	"github.com/frederic-klein/condascan/internal/listing"
	"github.com/frederic-klein/condascan/internal/rank"
	"github.com/frederic-klein/condascan/internal/scan"
)

const (
	colorEnv     = lipgloss.Color("#06B6D4")
	colorPython  = lipgloss.Color("#3B82F6")
	colorCount   = lipgloss.Color("#D946EF")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

// Text renders human readable output. Colors are only emitted when w is a
// terminal.
type Text struct{}

type palette struct {
	r       *lipgloss.Renderer
	bold    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	env     lipgloss.Style
	python  lipgloss.Style
	count   lipgloss.Style
	header  lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		r:       r,
		bold:    r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		failure: r.NewStyle().Foreground(colorError),
		env:     r.NewStyle().Foreground(colorEnv),
		python:  r.NewStyle().Foreground(colorPython),
		count:   r.NewStyle().Foreground(colorCount),
		header:  r.NewStyle().Bold(true),
	}
}

func (pl palette) table(headers []string, cols []lipgloss.Style, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(pl.r.NewStyle()).
		BorderRow(true).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return pl.header.Padding(0, 1)
			}
			if col < len(cols) {
				return cols[col].Padding(0, 1)
			}
			return pl.r.NewStyle().Padding(0, 1)
		})
	return t.String()
}

// Have implements Presenter.
func (Text) Have(w io.Writer, res rank.Result, p rank.Policy) error {
	pl := newPalette(w)

	if p.Verbose {
		if p.Limited() {
			if _, err := fmt.Fprintln(w, pl.bold.Render(fmt.Sprintf("Limiting output to %d environments", p.Limit))); err != nil {
				return err
			}
		}
		rows := make([][]string, 0, len(res.Ranked))
		for _, r := range res.Ranked {
			rows = append(rows, []string{r.Env, orDash(r.PythonVersion), installed(r), pl.info(r)})
		}
		_, err := fmt.Fprintln(w, pl.table(
			[]string{"Environment", "Python Version", "Total Packages Installed", "Info"},
			[]lipgloss.Style{pl.env, pl.python, pl.count, pl.r.NewStyle()},
			rows,
		))
		return err
	}

	if res.TotalMatches == 0 {
		_, err := fmt.Fprintln(w, pl.failure.Render("No environments found with all required packages. To see the details, run with --verbose"))
		return err
	}

	var heading string
	switch {
	case p.First:
		heading = "Found the first environment with all required packages:"
	case p.Limited():
		heading = fmt.Sprintf("Found %d environments with all required packages (output limited to %d):", len(res.Matches), p.Limit)
	default:
		heading = fmt.Sprintf("Found %d environments with all required packages:", len(res.Matches))
	}
	return pl.list(w, heading, envNames(res.Matches))
}

func (pl palette) list(w io.Writer, heading string, items []string) error {
	if _, err := fmt.Fprintln(w, pl.success.Render(heading)); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(w, pl.success.Render("- "+item)); err != nil {
			return err
		}
	}
	return nil
}

func (pl palette) info(r evaluate.Report) string {
	lines := make([]string, 0, len(r.Statuses))
	for _, st := range r.Statuses {
		name := st.Requirement.Name
		switch st.Kind {
		case evaluate.Found:
			lines = append(lines, pl.success.Render("✓ "+name+"=="+st.Detail))
		case evaluate.Missing:
			lines = append(lines, pl.failure.Render("✗ "+name+": missing"))
		case evaluate.VersionInvalid, evaluate.VersionMismatch:
			lines = append(lines, pl.warning.Render("⚠ "+name+": "+st.Detail))
		case evaluate.Error:
			lines = append(lines, pl.failure.Render("! "+name+": "+st.Detail))
		}
	}
	return strings.Join(lines, "\n")
}

func installed(r evaluate.Report) string {
	if r.TotalInstalled == evaluate.Worst {
		return "-"
	}
	return strconv.Itoa(r.TotalInstalled)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envNames(reports []evaluate.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.Env
	}
	return out
}

// Execute implements Presenter.
func (Text) Execute(w io.Writer, results []scan.ExecResult, p rank.Policy) error {
	pl := newPalette(w)
	shown, successes := executable(results, p)

	if p.Verbose {
		if p.Limited() {
			if _, err := fmt.Fprintln(w, pl.bold.Render(fmt.Sprintf("Limiting output to %d environments", p.Limit))); err != nil {
				return err
			}
		}
		rows := make([][]string, 0, len(shown))
		for _, r := range shown {
			rows = append(rows, []string{r.Env, pl.outcome(r)})
		}
		_, err := fmt.Fprintln(w, pl.table(
			[]string{"Environment", "Info"},
			[]lipgloss.Style{pl.env, pl.r.NewStyle()},
			rows,
		))
		return err
	}

	if successes == 0 {
		_, err := fmt.Fprintln(w, pl.failure.Render("No environments found that can execute the command. To see the details, run with --verbose"))
		return err
	}

	var heading string
	switch {
	case p.First:
		heading = "Found the first environment that can execute the command:"
	case p.Limited():
		heading = fmt.Sprintf("Found %d environments that can execute the command (output limited to %d):", len(shown), p.Limit)
	default:
		heading = fmt.Sprintf("Found %d environments that can execute the command:", len(shown))
	}
	names := make([]string, len(shown))
	for i, r := range shown {
		names[i] = r.Env
	}
	return pl.list(w, heading, names)
}

func (pl palette) outcome(r scan.ExecResult) string {
	switch {
	case r.Err != nil:
		return pl.failure.Render("! " + r.Err.Error())
	case r.OK():
		return pl.success.Render("✓ exit 0")
	}
	msg := fmt.Sprintf("✗ exit %d", r.ExitCode)
	if last := lastLine(r.Output); last != "" {
		msg += ": " + last
	}
	return pl.failure.Render(msg)
}

// lastLine is usually where a failing command puts its error.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// Compare implements Presenter.
func (Text) Compare(w io.Writer, a, b string, d listing.Diff, opts CompareOptions) error {
	pl := newPalette(w)
	changed := d.Changed()

	if len(d.OnlyA) == 0 && len(d.OnlyB) == 0 && len(changed) == 0 && !opts.All {
		_, err := fmt.Fprintln(w, pl.success.Render(fmt.Sprintf("%s and %s have the same packages installed", a, b)))
		return err
	}

	sections := []struct {
		title string
		recs  []listing.Record
	}{
		{fmt.Sprintf("Only in %s (%d):", a, len(d.OnlyA)), d.OnlyA},
		{fmt.Sprintf("Only in %s (%d):", b, len(d.OnlyB)), d.OnlyB},
	}
	for _, s := range sections {
		if len(s.recs) == 0 {
			continue
		}
		if _, err := fmt.Fprintln(w, pl.bold.Render(s.title)); err != nil {
			return err
		}
		for _, rec := range s.recs {
			if _, err := fmt.Fprintf(w, "- %s %s\n", rec.Name, rec.Version); err != nil {
				return err
			}
		}
	}

	pairs, title := changed, fmt.Sprintf("Different versions (%d):", len(changed))
	if opts.All {
		pairs, title = d.Both, fmt.Sprintf("Installed in both (%d):", len(d.Both))
	}
	if len(pairs) == 0 {
		return nil
	}
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p.Name, p.VersionA, p.VersionB}
	}
	if _, err := fmt.Fprintln(w, pl.bold.Render(title)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, pl.table(
		[]string{"Package", a, b},
		[]lipgloss.Style{pl.r.NewStyle(), pl.env, pl.python},
		rows,
	))
	return err
}

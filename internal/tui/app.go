package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/snipcap/snipcap/internal/engine"
	"github.com/snipcap/snipcap/internal/logging"
)

// progressBarWidth is the preferred width of the run progress bar; narrower
// terminals shrink it.
const progressBarWidth = 40

// KeyMap defines the keybindings for the progress UI.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "cancel"),
		),
	}
}

// AppConfig holds configuration for the progress UI.
type AppConfig struct {
	// Version is the snipcap semantic version string (e.g. "0.3.0").
	Version string
	// ProjectName is the configured project name, if any.
	ProjectName string
	// Names are the snippet names the run will process, in run order. They
	// pre-populate the row list so every snippet is visible from the start.
	Names []string
}

// snippetRow tracks the display state of one snippet.
type snippetRow struct {
	name     string
	tool     string
	running  bool
	status   engine.Status
	bytes    int64
	duration time.Duration
	err      error
}

// App is the Bubble Tea model for the generate progress UI. It renders
// inline (no alternate screen) so the final summary stays in the terminal
// after the program exits.
type App struct {
	config AppConfig
	theme  Theme
	keys   KeyMap
	bridge EventBridge

	ctx    context.Context
	cancel context.CancelFunc
	events <-chan engine.Event
	done   <-chan RunDoneMsg

	spinner  spinner.Model
	progress progress.Model

	width      int
	nameWidth  int
	rows       []snippetRow
	index      map[string]int
	finished   int
	cancelling bool
	quitting   bool

	report *engine.Report
	runErr error
}

// NewApp constructs an App for one run. cancel is invoked when the user
// requests cancellation; events and done are the run's channels.
func NewApp(ctx context.Context, cancel context.CancelFunc, cfg AppConfig, events <-chan engine.Event, done <-chan RunDoneMsg) App {
	theme := DefaultTheme()

	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Spinner),
	)
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(progressBarWidth),
		progress.WithoutPercentage(),
	)

	a := App{
		config:   cfg,
		theme:    theme,
		keys:     DefaultKeyMap(),
		bridge:   NewEventBridge(),
		ctx:      ctx,
		cancel:   cancel,
		events:   events,
		done:     done,
		spinner:  sp,
		progress: bar,
		index:    make(map[string]int, len(cfg.Names)),
	}
	for _, name := range cfg.Names {
		a.index[name] = len(a.rows)
		a.rows = append(a.rows, snippetRow{name: name})
		if len(name) > a.nameWidth {
			a.nameWidth = len(name)
		}
	}
	return a
}

// Init starts the spinner and arms the bridge commands that drain the run's
// channels.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.bridge.SnippetEventCmd(a.ctx, a.events),
		a.bridge.RunDoneCmd(a.done),
	)
}

// Update dispatches incoming messages and returns the updated model plus any
// follow-up command. Snippet messages re-arm the bridge so the event channel
// keeps draining; the quit key cancels the run and the UI exits once the
// run's final outcome arrives.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.progress.Width = fitProgressWidth(m.Width)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(m, a.keys.Quit) {
			if a.cancelling {
				// Second press: stop waiting for the run to settle.
				a.quitting = true
				return a, tea.Quit
			}
			a.cancelling = true
			if a.cancel != nil {
				a.cancel()
			}
			return a, nil
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd

	case SnippetStartedMsg:
		a.setRunning(m.Name, m.Tool)
		return a, a.bridge.SnippetEventCmd(a.ctx, a.events)

	case SnippetFinishedMsg:
		a.setFinished(m)
		return a, a.bridge.SnippetEventCmd(a.ctx, a.events)

	case RunDoneMsg:
		a.report = m.Report
		a.runErr = m.Err
		a.quitting = true
		return a, tea.Quit
	}

	return a, nil
}

// setRunning marks a snippet's row as running, appending a row for names
// that were not pre-populated.
func (a *App) setRunning(name, tool string) {
	i, ok := a.index[name]
	if !ok {
		i = a.appendRow(name)
	}
	a.rows[i].running = true
	a.rows[i].tool = tool
}

// setFinished records a snippet's final outcome on its row.
func (a *App) setFinished(m SnippetFinishedMsg) {
	i, ok := a.index[m.Name]
	if !ok {
		i = a.appendRow(m.Name)
	}
	a.rows[i].running = false
	a.rows[i].status = m.Status
	a.rows[i].bytes = m.Bytes
	a.rows[i].duration = m.Duration
	a.rows[i].err = m.Err
	a.finished++
}

func (a *App) appendRow(name string) int {
	i := len(a.rows)
	a.index[name] = i
	a.rows = append(a.rows, snippetRow{name: name})
	if len(name) > a.nameWidth {
		a.nameWidth = len(name)
	}
	return i
}

// View renders the progress UI: a title, a status line with spinner, one
// line per snippet, and the run progress bar. After the run settles it
// renders the final summary, which remains visible because the program runs
// inline rather than on the alternate screen.
func (a App) View() string {
	if a.quitting {
		return a.summaryView()
	}

	var b strings.Builder
	b.WriteString(a.titleView())
	b.WriteString("\n\n")

	if a.cancelling {
		b.WriteString(fmt.Sprintf("%s Cancelling, waiting for running captures", a.spinner.View()))
	} else {
		b.WriteString(fmt.Sprintf("%s Capturing snippets (%d/%d)", a.spinner.View(), a.finished, len(a.rows)))
	}
	b.WriteString("\n\n")

	for _, row := range a.rows {
		b.WriteString(a.rowView(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.progress.ViewAs(a.completedFraction()))
	b.WriteString("\n\n")
	b.WriteString(a.theme.HelpKey.Render("q"))
	b.WriteString(a.theme.HelpDesc.Render(" cancel"))
	b.WriteString("\n")
	return b.String()
}

// titleView builds the header line showing the version and project name.
func (a App) titleView() string {
	title := a.theme.Title.Render(fmt.Sprintf("snipcap v%s", a.config.Version))
	if a.config.ProjectName != "" {
		title += a.theme.TitleProject.Render("  " + a.config.ProjectName)
	}
	return title
}

// rowView renders one snippet line: indicator, padded name, and a detail
// column whose content depends on the row's state.
func (a App) rowView(row snippetRow) string {
	indicator := a.theme.StatusIndicator(row.status)
	if row.running {
		indicator = a.spinner.View()
	}

	name := a.theme.SnippetName.Render(fmt.Sprintf("%-*s", a.nameWidth, row.name))
	detail := a.rowDetail(row)
	if detail == "" {
		return fmt.Sprintf("  %s %s", indicator, name)
	}
	return fmt.Sprintf("  %s %s  %s", indicator, name, detail)
}

func (a App) rowDetail(row snippetRow) string {
	switch {
	case row.running:
		return a.theme.RowDetail.Render(row.tool)
	case row.status == engine.StatusCaptured:
		size := humanize.IBytes(uint64(row.bytes))
		return a.theme.RowDetail.Render(fmt.Sprintf("%s in %s", size, row.duration.Round(time.Millisecond)))
	case row.status == engine.StatusSkipped:
		return a.theme.RowDetail.Render("up to date")
	case row.err != nil:
		return a.theme.ErrorText.Render(row.err.Error())
	default:
		return ""
	}
}

// summaryView renders the final frame: every row in its settled state plus
// a one-line count summary.
func (a App) summaryView() string {
	var b strings.Builder
	b.WriteString("\n")
	for _, row := range a.rows {
		b.WriteString(a.rowView(row))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.summaryLine())
	b.WriteString("\n")
	return b.String()
}

// summaryLine builds the count summary, styling each count part the way the
// status indicators are styled.
func (a App) summaryLine() string {
	if a.report == nil {
		return a.theme.ErrorText.Render("run did not complete")
	}

	var parts []string
	if n := a.report.Count(engine.StatusCaptured); n > 0 {
		parts = append(parts, a.theme.StatusCaptured.Render(fmt.Sprintf("%d captured", n)))
	}
	if n := a.report.Count(engine.StatusSkipped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d up to date", n))
	}
	if n := a.report.Count(engine.StatusFailed); n > 0 {
		parts = append(parts, a.theme.StatusFailed.Render(fmt.Sprintf("%d failed", n)))
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing to do")
	}

	elapsed := a.report.Elapsed().Round(time.Millisecond)
	return fmt.Sprintf("%s in %s", strings.Join(parts, ", "), elapsed)
}

// completedFraction returns the settled share of the run for the progress bar.
func (a App) completedFraction() float64 {
	if len(a.rows) == 0 {
		return 0
	}
	return float64(a.finished) / float64(len(a.rows))
}

// fitProgressWidth shrinks the progress bar on narrow terminals.
func fitProgressWidth(termWidth int) int {
	w := termWidth - 4
	if w > progressBarWidth {
		w = progressBarWidth
	}
	if w < 10 {
		w = 10
	}
	return w
}

// Run drives the progress UI for one generate run and blocks until the run
// settles or the user force-quits. It returns the run's report and error as
// delivered by the run goroutine over done.
func Run(ctx context.Context, cancel context.CancelFunc, cfg AppConfig, events <-chan engine.Event, done <-chan RunDoneMsg) (*engine.Report, error) {
	logger := logging.New("tui")
	logger.Debug("starting progress ui", "snippets", len(cfg.Names))

	p := tea.NewProgram(NewApp(ctx, cancel, cfg, events, done))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running progress ui: %w", err)
	}

	app, ok := final.(App)
	if !ok {
		return nil, fmt.Errorf("unexpected final model %T", final)
	}
	return app.report, app.runErr
}

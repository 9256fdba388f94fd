package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/committable"
	"go.trai.ch/timescope/internal/renderer"
)

const (
	labelWidth = 14
	// chromeHeight is the header, axis, range and help lines.
	chromeHeight = 4
	// panStep is the distance in columns one arrow key press moves the view.
	panStep = 8
	// wheelStep is the wheel delta one zoom key press sends.
	wheelStep = 100
)

// Controller is the widget the model steers.
type Controller interface {
	Pointer(ctx context.Context, p domain.Pointer) (bool, error)
	Wheel(ctx context.Context, deltaY float64) error
	SetTime(ctx context.Context, v any, anim *committable.Animation) error
	Reload(sources ...string) error
	Resize(ctx context.Context, size domain.Size) error
}

type keyMap struct {
	Earlier key.Binding
	Later   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Live    key.Binding
	Reload  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Earlier, k.Later, k.ZoomIn, k.ZoomOut, k.Live, k.Reload, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Earlier: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "earlier")),
	Later:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "later")),
	ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	Live:    key.NewBinding(key.WithKeys("n", "end"), key.WithHelp("n", "now")),
	Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the bubbletea model of the widget: it shows the latest frame and
// turns keys into pointer gestures.
type Model struct {
	ctx  context.Context
	ctrl Controller

	frame    renderer.Frame
	hasFrame bool
	width    int
	height   int
	err      error

	spinner     spinner.Model
	help        help.Model
	disableTick bool
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	if m.disableTick {
		return nil
	}
	return m.spinner.Tick
}

// Update handles keys, window sizes and frames.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, m.resize()

	case MsgFrame:
		// A frame older than the one shown is stale.
		if m.hasFrame && msg.Frame.Seq < m.frame.Seq {
			return m, nil
		}
		m.frame, m.hasFrame = msg.Frame, true

	case MsgError:
		m.err = msg.Err

	case spinner.TickMsg:
		if m.disableTick {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Earlier):
		return m.click(-panStep)
	case key.Matches(msg, keys.Later):
		return m.click(panStep)
	case key.Matches(msg, keys.ZoomIn):
		return m.wheel(-wheelStep)
	case key.Matches(msg, keys.ZoomOut):
		return m.wheel(wheelStep)
	case key.Matches(msg, keys.Live):
		return m.call(func(ctx context.Context) error { return m.ctrl.SetTime(ctx, nil, nil) })
	case key.Matches(msg, keys.Reload):
		return m.call(func(context.Context) error { return m.ctrl.Reload() })
	}
	return nil
}

// chartWidth is the number of columns left for the tracks.
func (m *Model) chartWidth() int {
	return max(m.width-labelWidth, 0)
}

// click moves the time by offset columns from the cursor.
func (m *Model) click(offset float64) tea.Cmd {
	x := m.frame.Cursor + offset
	return m.call(func(ctx context.Context) error {
		_, err := m.ctrl.Pointer(ctx, domain.Pointer{Kind: domain.PointerClick, X: x})
		return err
	})
}

func (m *Model) wheel(deltaY float64) tea.Cmd {
	return m.call(func(ctx context.Context) error { return m.ctrl.Wheel(ctx, deltaY) })
}

func (m *Model) resize() tea.Cmd {
	size := domain.Size{Width: m.chartWidth(), Height: max(m.height-chromeHeight, 0)}
	return m.call(func(ctx context.Context) error { return m.ctrl.Resize(ctx, size) })
}

// call runs fn off the update loop, reporting failures as MsgError.
func (m *Model) call(fn func(ctx context.Context) error) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return MsgError{Err: err}
		}
		return nil
	}
}

// Frame is the last frame the model received.
func (m *Model) Frame() (renderer.Frame, bool) { return m.frame, m.hasFrame }

// Err is the last controller failure.
func (m *Model) Err() error { return m.err }

// Package app hosts the Bubble Tea program for `cardquiz play`.
package app

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cardquiz/internal/logger"
	"github.com/abhisek/cardquiz/internal/quiz"
	"github.com/abhisek/cardquiz/internal/router"
	"github.com/abhisek/cardquiz/internal/screen"
	"github.com/abhisek/cardquiz/internal/screens/session"
	"github.com/abhisek/cardquiz/internal/screens/welcome"
	"github.com/abhisek/cardquiz/internal/ui/layout"
)

// Options configures the terminal app.
type Options struct {
	Engine *quiz.Engine
	Log    *logger.Logger
	// SkipSplash starts directly on the quiz screen.
	SkipSplash bool
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	engine session.Engine
	width  int
	height int
}

func newAppModel(engine session.Engine, skipSplash bool) AppModel {
	quizFactory := func() screen.Screen { return session.New(engine, nil) }

	var first screen.Screen
	if skipSplash {
		first = quizFactory()
	} else {
		first = welcome.New(quizFactory, session.SampleTopics)
	}
	return AppModel{
		router: router.New(first),
		engine: engine,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the full frame for the current size.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	st := m.engine.Snapshot()
	header := layout.RenderHeader(title, st.Score, quiz.Accuracy(st), m.width)

	footerHints := []layout.KeyHint{
		{Key: "any key", Description: "Start"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	}

	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the engine and the Bubble Tea program, and stops the engine
// when the program exits.
func Run(ctx context.Context, opts Options) error {
	if opts.Engine == nil {
		return fmt.Errorf("app: engine is required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(ctx)
	engineDone := make(chan error, 1)
	go func() { engineDone <- opts.Engine.Run(ctx) }()

	p := tea.NewProgram(newAppModel(opts.Engine, opts.SkipSplash))
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	cancel()
	if engineErr := <-engineDone; engineErr != nil {
		log.Warn("quiz engine stopped with error", "error", engineErr)
	}
	if err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	log.Info("quiz finished", "score", opts.Engine.Snapshot().Score)
	return nil
}

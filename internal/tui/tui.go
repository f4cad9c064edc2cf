// Package tui plays the map quiz in a terminal. Guesses are typed as
// "lat,lng" instead of double-clicked.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/playperu/mapquiz/internal/mapquiz"
	"github.com/playperu/mapquiz/internal/round"
	"github.com/playperu/mapquiz/internal/score"
)

const refreshInterval = 100 * time.Millisecond

// Feed carries controller events into the program. It implements
// round.Publisher.
type Feed chan round.Event

func NewFeed() Feed { return make(Feed, 32) }

func (f Feed) Publish(_ string, ev round.Event) {
	select {
	case f <- ev:
	default:
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	correctStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2ECC71"))

	wrongStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E74C3C"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

type model struct {
	ctrl      *round.Controller
	feed      Feed
	view      round.View
	textInput textinput.Model
	notice    string
	err       error
	width     int
}

func newModel(ctrl *round.Controller, feed Feed) model {
	ti := textinput.New()
	ti.Placeholder = "34.2400,-118.5290"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	return model{
		ctrl:      ctrl,
		feed:      feed,
		textInput: ti,
		view:      round.View{HighScore: score.NoHighScore},
	}
}

type eventMsg round.Event

type viewMsg round.View

type tickMsg time.Time

type errMsg struct {
	err error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.start(), m.waitForEvent(), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			m.notice = ""

			switch input {
			case "":
				return m, nil
			case "/quit":
				return m, tea.Quit
			case "/restart":
				return m, m.restart()
			case "/clear":
				return m, m.clearHighScore()
			}

			at, err := parseGuess(input)
			if err != nil {
				m.notice = err.Error()
				return m, nil
			}
			return m, m.guess(at)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case eventMsg:
		m.view = msg.View
		return m, m.waitForEvent()

	case viewMsg:
		m.view = round.View(msg)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.snapshot(), tick())

	case errMsg:
		if errors.Is(msg.err, round.ErrClosed) {
			m.err = msg.err
			return m, tea.Quit
		}
		m.notice = msg.err.Error()
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n", m.err)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderRound(), m.renderHistory())

	help := helpStyle.Render("Type lat,lng to guess. Commands: /restart, /clear, /quit.")
	parts := []string{titleStyle.Render("CAMPUS MAP QUIZ"), "", body, "", m.textInput.View()}
	if m.notice != "" {
		parts = append(parts, wrongStyle.Render(m.notice))
	}
	parts = append(parts, help)

	return "\n" + lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m model) renderRound() string {
	v := m.view
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(label), value)
	}

	if v.Phase != round.PhaseFinished && v.Phase != round.PhaseIdle {
		line("Round:", fmt.Sprintf("%d / %d", v.Round, v.TotalRounds))
		target := v.Target
		switch {
		case v.GeocodeFailed:
			target += wrongStyle.Render(" (lookup failed)")
		case !v.TargetReady:
			target += labelStyle.Render(" (locating...)")
		}
		line("Find:", target)
	}
	line("Time:", fmt.Sprintf("%.1fs", v.ElapsedSeconds))
	line("Score:", v.Score)
	line("High score:", v.HighScore)
	b.WriteString("\n")

	if v.Message != "" {
		b.WriteString(messageStyle.Render(v.Message) + "\n")
	}
	if fb := v.Feedback; fb != nil {
		style := wrongStyle
		if fb.Correct {
			style = correctStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("Guess %.5f,%.5f. Target box lat %.5f..%.5f, lng %.5f..%.5f",
			fb.Guess.Lat, fb.Guess.Lng,
			fb.Target.South, fb.Target.North, fb.Target.West, fb.Target.East)) + "\n")
	}
	if v.Summary != "" {
		b.WriteString("\n" + titleStyle.Render(v.Summary) + "\n")
	}

	width := 60
	if m.width > 0 {
		width = m.width * 2 / 3
	}
	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (m model) renderHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("HISTORY") + "\n")
	if len(m.view.History) == 0 {
		b.WriteString("(none yet)")
	}
	for _, h := range m.view.History {
		mark := wrongStyle.Render("✗")
		if h.Correct {
			mark = correctStyle.Render("✓")
		}
		fmt.Fprintf(&b, "%s %d. %s\n", mark, h.Round, h.Name)
	}
	return panelStyle.Render(b.String())
}

// parseGuess reads "lat,lng" in decimal degrees.
func parseGuess(s string) (mapquiz.Coord, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return mapquiz.Coord{}, fmt.Errorf("expected lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return mapquiz.Coord{}, fmt.Errorf("bad latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return mapquiz.Coord{}, fmt.Errorf("bad longitude %q", lngStr)
	}
	c := mapquiz.Coord{Lat: lat, Lng: lng}
	if !c.Valid() {
		return mapquiz.Coord{}, fmt.Errorf("coordinate out of range: %s", s)
	}
	return c, nil
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.feed)
	}
}

func (m model) start() tea.Cmd {
	return m.viewCmd(m.ctrl.Start)
}

func (m model) restart() tea.Cmd {
	return m.viewCmd(m.ctrl.Restart)
}

func (m model) clearHighScore() tea.Cmd {
	return m.viewCmd(m.ctrl.ClearHighScore)
}

func (m model) snapshot() tea.Cmd {
	return m.viewCmd(m.ctrl.Snapshot)
}

func (m model) viewCmd(f func(context.Context) (round.View, error)) tea.Cmd {
	return func() tea.Msg {
		v, err := f(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return viewMsg(v)
	}
}

func (m model) guess(at mapquiz.Coord) tea.Cmd {
	return func() tea.Msg {
		res, err := m.ctrl.Guess(context.Background(), at)
		if err != nil {
			return errMsg{err}
		}
		if !res.Accepted {
			return errMsg{errors.New("guess ignored: no target to guess at right now")}
		}
		return viewMsg(res.View)
	}
}

// Run plays ctrl until the user quits. ctrl must publish to feed.
func Run(ctrl *round.Controller, feed Feed) error {
	p := tea.NewProgram(newModel(ctrl, feed), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

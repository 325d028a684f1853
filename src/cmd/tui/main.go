package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"memory-gateway/src/internal/client"
	"memory-gateway/src/internal/config"
)

type mode int

const (
	modeSearch mode = iota
	modeTask
)

func (m mode) String() string {
	if m == modeTask {
		return "retrieve_for_task"
	}
	return "search"
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	activeStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
	idleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	scoreStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	typeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type resultMsg struct {
	content string
	took    time.Duration
}

type errMsg struct{ err error }

type Model struct {
	client   *client.Client
	query    textinput.Model
	branch   textinput.Model
	limit    int
	focus    int
	mode     mode
	viewport viewport.Model
	status   string
}

func initialModel(c *client.Client, limit int) Model {
	q := textinput.New()
	q.Placeholder = "query or task description"
	q.Prompt = "› "
	q.Focus()

	b := textinput.New()
	b.Placeholder = "branch filter (task mode)"
	b.Prompt = "⎇ "

	vp := viewport.New(100, 20)
	vp.SetContent(dimStyle.Render("Type a query and press enter."))

	return Model{
		client:   c,
		query:    q,
		branch:   b,
		limit:    limit,
		viewport: vp,
		status:   "connected to " + c.BaseURL,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.checkHealth())
}

func (m Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.client.Health(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) run() tea.Cmd {
	query := m.query.Value()
	branch := strings.TrimSpace(m.branch.Value())
	md, limit, c := m.mode, m.limit, m.client

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		start := time.Now()

		if md == modeSearch {
			hits, err := c.Search(ctx, query, limit)
			if err != nil {
				return errMsg{err}
			}
			return resultMsg{content: renderHits(hits), took: time.Since(start)}
		}

		res, err := c.RetrieveForTask(ctx, query, branch, limit)
		if err != nil {
			return errMsg{err}
		}
		return resultMsg{content: renderTask(res), took: time.Since(start)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width == 0 || msg.Height == 0 {
			return m, nil
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-12, 3)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.focus = (m.focus + 1) % 2
			if m.focus == 0 {
				m.branch.Blur()
				cmds = append(cmds, m.query.Focus())
			} else {
				m.query.Blur()
				cmds = append(cmds, m.branch.Focus())
			}
			return m, tea.Batch(cmds...)
		case "ctrl+t":
			if m.mode == modeSearch {
				m.mode = modeTask
			} else {
				m.mode = modeSearch
			}
			m.status = "mode: " + m.mode.String()
			return m, nil
		case "enter":
			m.status = "running " + m.mode.String() + "..."
			return m, m.run()
		}
	case resultMsg:
		m.viewport.SetContent(msg.content)
		m.viewport.GotoTop()
		m.status = fmt.Sprintf("%s done in %s", m.mode, msg.took.Round(time.Millisecond))
		return m, nil
	case errMsg:
		m.status = errStyle.Render(msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	cmds = append(cmds, cmd)
	m.branch, cmd = m.branch.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func renderHit(i int, h client.Hit) string {
	head := fmt.Sprintf("%d. %s %s %s",
		i+1,
		scoreStyle.Render(fmt.Sprintf("%.4f", h.Score)),
		lipgloss.NewStyle().Bold(true).Render(h.Memory.Title),
		typeStyle.Render("["+h.Memory.MemoryType+"]"),
	)
	meta := dimStyle.Render(fmt.Sprintf("   %s · %s · salience %.2f", h.Memory.MemoryID, h.Memory.Branch, h.Memory.Salience))
	return head + "\n" + meta + "\n   " + h.Memory.Content
}

func renderHits(hits []client.Hit) string {
	if len(hits) == 0 {
		return dimStyle.Render("No matching memories.")
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = renderHit(i, h)
	}
	return strings.Join(parts, "\n\n")
}

func renderTask(res client.TaskResult) string {
	hits := res.Hits()
	if len(hits) == 0 {
		return dimStyle.Render("No matching memories.")
	}
	var b strings.Builder
	b.WriteString(renderHits(hits))
	if len(res.Provenance) > 0 {
		b.WriteString("\n\n" + titleStyle.Render("Provenance") + "\n")
		for _, p := range res.Provenance {
			fmt.Fprintf(&b, "• %s %s %s\n", p.MemoryID, typeStyle.Render(p.MemoryType), dimStyle.Render(p.Detail))
		}
	}
	return b.String()
}

func helpView() string {
	return dimStyle.Render("enter: run | tab: switch field | ctrl+t: toggle search/task | ↑↓ pgup pgdn: scroll | esc: quit")
}

func (m Model) View() string {
	queryBox, branchBox := idleStyle, idleStyle
	if m.focus == 0 {
		queryBox = activeStyle
	} else {
		branchBox = activeStyle
	}

	inputs := lipgloss.JoinHorizontal(lipgloss.Top,
		queryBox.Render(m.query.View()),
		branchBox.Render(m.branch.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Memory Gateway · "+m.mode.String()),
		inputs,
		m.viewport.View(),
		m.status,
		helpView(),
	)
}

func main() {
	var configFile, addr string
	var limit int
	flag.StringVar(&configFile, "config", "", "config path used to derive the server address")
	flag.StringVar(&addr, "addr", "", "gateway base URL (default from config)")
	flag.IntVar(&limit, "limit", 0, "result limit (0 uses the server default)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if addr == "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		host := cfg.Server.EffectiveHost
		if host == "0.0.0.0" || host == "::" {
			host = "localhost"
		}
		addr = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
	}

	p := tea.NewProgram(initialModel(client.New(addr), limit), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("TUI error", "err", err)
		os.Exit(1)
	}
}

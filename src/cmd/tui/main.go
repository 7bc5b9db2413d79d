package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"status-image/src/internal/bot"
	"status-image/src/internal/render"
	"status-image/src/internal/statusimage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle = lipgloss.NewStyle().Width(5).Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)

	statusColors = map[bot.Status]lipgloss.Color{
		bot.Online:     "42",
		bot.Offline:    "160",
		bot.Connect:    "214",
		bot.Disconnect: "214",
		bot.Reconnect:  "214",
	}
)

type statusMsg struct {
	snap statusimage.Snapshot
	err  error
}

type tickMsg time.Time

type Model struct {
	client   *client
	interval time.Duration

	spinner spinner.Model
	cpu     progress.Model
	mem     progress.Model
	bots    table.Model

	snap    statusimage.Snapshot
	err     error
	loading bool
}

func initialModel(c *client, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Platform", Width: 10},
			{Title: "Name", Width: 20},
			{Title: "Status", Width: 14},
			{Title: "Uptime", Width: 14},
			{Title: "Sent", Width: 8},
			{Title: "Recv", Width: 8},
		}),
		table.WithHeight(6),
	)

	return Model{
		client:   c,
		interval: interval,
		spinner:  sp,
		cpu:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		mem:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		bots:     tbl,
		loading:  true,
	}
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()
		snap, err := m.client.status(ctx)
		return statusMsg{snap: snap, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, m.fetch()
		}
	case tea.WindowSizeMsg:
		w := max(msg.Width-16, 10)
		m.cpu.Width, m.mem.Width = w, w
		return m, nil
	case tickMsg:
		m.loading = true
		return m, m.fetch()
	case statusMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.bots.SetRows(botRows(msg.snap.Bots))
		}
		return m, m.tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.bots, cmd = m.bots.Update(msg)
	return m, cmd
}

func botRows(bots []statusimage.BotStatus) []table.Row {
	rows := make([]table.Row, 0, len(bots))
	for _, b := range bots {
		rows = append(rows, table.Row{
			b.Platform,
			b.Name,
			b.StatusLabel,
			render.FormatDuration(time.Duration(b.Uptime)*time.Second, "en"),
			strconv.FormatInt(b.Sent, 10),
			strconv.FormatInt(b.Received, 10),
		})
	}
	return rows
}

func (m Model) View() string {
	var sb strings.Builder

	header := titleStyle.Render("status-image")
	if m.loading {
		header += " " + m.spinner.View()
	}
	sb.WriteString(header + "\n\n")

	if m.err != nil {
		sb.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}

	sb.WriteString(labelStyle.Render("CPU") + m.cpu.ViewAs(m.snap.CPU) + "\n")
	sb.WriteString(labelStyle.Render("RAM") + m.mem.ViewAs(m.snap.Memory) + "\n")
	sb.WriteString(labelStyle.Render("OS") + m.snap.OS + "\n\n")

	sb.WriteString(boxStyle.Render(m.bots.View()) + "\n")
	sb.WriteString(summary(m.snap.Bots) + "\n\n")
	sb.WriteString(helpStyle.Render("r: refresh | ↑↓: scroll | q: quit"))
	return sb.String()
}

// summary counts bots per status, coloured like the page badges.
func summary(bots []statusimage.BotStatus) string {
	counts := map[bot.Status]int{}
	for _, b := range bots {
		counts[b.Status]++
	}
	var parts []string
	for _, s := range []bot.Status{bot.Online, bot.Connect, bot.Reconnect, bot.Disconnect, bot.Offline} {
		if n := counts[s]; n > 0 {
			style := lipgloss.NewStyle().Foreground(statusColors[s])
			parts = append(parts, style.Render(fmt.Sprintf("%s %d", s.Label("en"), n)))
		}
	}
	if len(parts) == 0 {
		return helpStyle.Render("no bots")
	}
	return strings.Join(parts, "  ")
}

func main() {
	fs := pflag.NewFlagSet("status-image-tui", pflag.ExitOnError)
	addr := fs.String("addr", "http://127.0.0.1:8090", "base URL of the status-image server")
	key := fs.String("key", os.Getenv("STATUS_IMAGE_SERVER_KEY"), "server key")
	interval := fs.Duration("interval", 5*time.Second, "refresh interval")
	_ = fs.Parse(os.Args[1:])

	p := tea.NewProgram(initialModel(newClient(*addr, *key), *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

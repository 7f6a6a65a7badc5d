package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/module-runner/graph"
	"github.com/wippyai/module-runner/runner"
	"github.com/wippyai/module-runner/sandbox"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	exportStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err     error
	runner  *runner.Runner
	graph   *graph.Graph
	watcher *graph.Watcher
	entry   string
	current *runner.Namespace
	input   textinput.Model
	status  string
}

type loadResultMsg struct {
	err error
	ns  *runner.Namespace
}

type invalidatedMsg struct {
	urls []string
}

func runInteractive(root, entry string, mode sandbox.Mode) error {
	r, g, err := newRunner(root, mode, zap.NewNop())
	if err != nil {
		return err
	}

	w, err := graph.NewWatcher(g)
	if err != nil {
		return err
	}
	if err := w.AddRoot(root); err != nil {
		return err
	}

	input := textinput.New()
	input.Placeholder = "/module.js"
	input.CharLimit = 128
	input.Width = 40

	m := &interactiveModel{
		runner:  r,
		graph:   g,
		watcher: w,
		entry:   entry,
		input:   input,
	}

	p := tea.NewProgram(m)
	w.OnChange(func(urls []string) {
		p.Send(invalidatedMsg{urls: append([]string(nil), urls...)})
	})
	w.Start(context.Background())
	defer w.Stop()

	_, err = p.Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadCmd(m.entry)
}

func (m *interactiveModel) loadCmd(url string) tea.Cmd {
	return func() tea.Msg {
		ns, err := m.runner.Load(context.Background(), url)
		return loadResultMsg{ns: ns, err: err}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.input.Focused() || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "r":
			if !m.input.Focused() {
				m.runner.Invalidate(m.entry)
				m.status = "reloading " + m.entry
				return m, m.loadCmd(m.entry)
			}

		case "l":
			if !m.input.Focused() {
				m.input.Focus()
				return m, textinput.Blink
			}

		case "esc":
			m.input.Blur()
			return m, nil

		case "enter":
			if m.input.Focused() {
				url := strings.TrimSpace(m.input.Value())
				m.input.SetValue("")
				m.input.Blur()
				if url != "" {
					m.status = "loading " + url
					return m, m.loadCmd(url)
				}
				return m, nil
			}
		}

	case loadResultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.current = msg.ns
			m.status = "loaded " + msg.ns.URL()
		}
		return m, nil

	case invalidatedMsg:
		m.status = "invalidated " + strings.Join(msg.urls, ", ")
		return m, m.loadCmd(m.entry)
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("module runner"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	if m.current != nil {
		b.WriteString(resultStyle.Render(m.current.URL()))
		b.WriteString("\n")
		names := m.current.ExportNames()
		sort.Strings(names)
		for _, name := range names {
			v, _ := m.current.GetExport(name)
			b.WriteString(fmt.Sprintf("  %s = %s\n",
				exportStyle.Render(name), truncate(fmt.Sprintf("%v", v), 60)))
		}
		b.WriteString("\n")
	}

	b.WriteString("Graph:\n")
	nodes := m.graph.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].URL < nodes[j].URL })
	for _, node := range nodes {
		if node.Invalidated() {
			b.WriteString("  " + staleStyle.Render(node.URL+" (stale)") + "\n")
		} else {
			b.WriteString("  " + urlStyle.Render(node.URL) + "\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	if m.input.Focused() {
		b.WriteString("\nload: " + m.input.View() + "\n")
		b.WriteString(helpStyle.Render("enter load · esc cancel"))
	} else {
		b.WriteString("\n" + helpStyle.Render("r reload entry · l load url · q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

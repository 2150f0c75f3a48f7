package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/tabular"
)

func newBuildCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build FILE",
		Short: "Interactively pick columns and chart kind, then export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(t.Headers) == 0 {
				return fmt.Errorf("%s: no columns", args[0])
			}
			m := newBuilder(cmd.Context(), t, out)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "chart.png", "File written by the export key (.png or .pdf)")
	return cmd
}

// field is the builder control that has focus.
type field int

const (
	fieldX field = iota
	fieldY
	fieldKind
	fieldTitle
	fieldCount
)

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Export key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
	Up:     key.NewBinding(key.WithKeys("up", "left"), key.WithHelp("←/↑", "previous option")),
	Down:   key.NewBinding(key.WithKeys("down", "right"), key.WithHelp("→/↓", "next option")),
	Export: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "export")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

// exportedMsg reports the result of an export started from the builder.
type exportedMsg struct {
	path string
	err  error
}

// builder is the bubbletea model of the interactive chart builder. Every
// column or kind change re-projects the table.
type builder struct {
	ctx   context.Context
	table *tabular.Table
	out   string

	x, y   int
	kind   int
	focus  field
	title  textinput.Model
	chart  viewport.Model
	width  int
	points []chart.Point
	err    error
	status string
}

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	chartBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

func newBuilder(ctx context.Context, t *tabular.Table, out string) *builder {
	ti := textinput.New()
	ti.Placeholder = core.DefaultTitle
	ti.CharLimit = core.MaxTitleLength
	ti.Width = 40

	b := &builder{
		ctx:   ctx,
		table: t,
		out:   out,
		title: ti,
		chart: viewport.New(80, 12),
		width: 80,
	}
	if len(t.Headers) > 1 {
		b.y = 1
	}
	b.reproject()
	return b
}

func (b *builder) Init() tea.Cmd {
	return nil
}

func (b *builder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.chart.Width = max(msg.Width-4, 20)
		b.chart.Height = max(msg.Height-12, 4)
		b.reproject()
		return b, nil

	case exportedMsg:
		if msg.err != nil {
			b.status = errorStyle.Render("export failed: " + msg.err.Error())
		} else {
			b.status = "saved " + msg.path
		}
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return b, tea.Quit
		case key.Matches(msg, keys.Export):
			b.status = "exporting..."
			return b, b.export()
		case key.Matches(msg, keys.Next):
			b.setFocus((b.focus + 1) % fieldCount)
			return b, nil
		case key.Matches(msg, keys.Prev):
			b.setFocus((b.focus + fieldCount - 1) % fieldCount)
			return b, nil
		}

		if b.focus == fieldTitle {
			var cmd tea.Cmd
			b.title, cmd = b.title.Update(msg)
			return b, cmd
		}

		switch {
		case key.Matches(msg, keys.Up):
			b.step(-1)
		case key.Matches(msg, keys.Down):
			b.step(1)
		}
		return b, nil
	}

	var cmd tea.Cmd
	b.chart, cmd = b.chart.Update(msg)
	return b, cmd
}

func (b *builder) setFocus(f field) {
	b.focus = f
	if f == fieldTitle {
		b.title.Focus()
		return
	}
	b.title.Blur()
}

// step moves the focused selector by delta, wrapping around.
func (b *builder) step(delta int) {
	wrap := func(i, n int) int { return ((i+delta)%n + n) % n }
	switch b.focus {
	case fieldX:
		b.x = wrap(b.x, len(b.table.Headers))
	case fieldY:
		b.y = wrap(b.y, len(b.table.Headers))
	case fieldKind:
		b.kind = wrap(b.kind, len(chart.Kinds()))
	default:
		return
	}
	b.reproject()
}

func (b *builder) kindValue() chart.Kind {
	return chart.Kinds()[b.kind]
}

func (b *builder) titleValue() string {
	if t := strings.TrimSpace(b.title.Value()); t != "" {
		return t
	}
	return core.DefaultTitle
}

func (b *builder) reproject() {
	b.points, b.err = chart.Project(b.table, b.table.Headers[b.x], b.table.Headers[b.y])
	if b.err != nil {
		b.chart.SetContent(errorStyle.Render(b.err.Error()))
		return
	}
	b.chart.SetContent(renderTextChart(b.points, b.kindValue(), b.chart.Width-2))
}

func (b *builder) export() tea.Cmd {
	if b.err != nil {
		err := b.err
		return func() tea.Msg { return exportedMsg{err: err} }
	}
	ds := chart.BuildDataset(b.points, b.kindValue(), b.table.Headers[b.y])
	kind, title, path, ctx := b.kindValue(), b.titleValue(), b.out, b.ctx
	return func() tea.Msg {
		return exportedMsg{path: path, err: writeChart(ctx, path, ds, kind, title)}
	}
}

func (b *builder) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("sheetcharts builder") + "\n\n")
	s.WriteString(b.selector(fieldX, "X column", b.table.Headers[b.x]) + "\n")
	s.WriteString(b.selector(fieldY, "Y column", b.table.Headers[b.y]) + "\n")
	s.WriteString(b.selector(fieldKind, "Kind    ", b.kindValue().Title()) + "\n")
	s.WriteString(b.label(fieldTitle, "Title   ") + " " + b.title.View() + "\n\n")
	s.WriteString(chartBox.Render(b.chart.View()) + "\n")
	if b.status != "" {
		s.WriteString(b.status + "\n")
	}
	s.WriteString(blurredStyle.Render(helpLine()))
	return s.String()
}

func (b *builder) label(f field, name string) string {
	if b.focus == f {
		return focusedStyle.Render("> " + name)
	}
	return blurredStyle.Render("  " + name)
}

func (b *builder) selector(f field, name, value string) string {
	return fmt.Sprintf("%s ‹ %s ›", b.label(f, name), value)
}

func helpLine() string {
	bindings := []key.Binding{keys.Next, keys.Down, keys.Export, keys.Quit}
	parts := make([]string, len(bindings))
	for i, k := range bindings {
		h := k.Help()
		parts[i] = h.Key + " " + h.Desc
	}
	return strings.Join(parts, " • ")
}

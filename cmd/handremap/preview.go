package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/retarget"
)

type PreviewCommand struct {
	Hz   int                `long:"hz" description:"Evaluation frequency (overrides the config)"`
	Curl map[string]float64 `long:"curl" description:"Finger curl for the static source, e.g. --curl index:0.8"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

var fingerColors = map[handtrack.Finger]string{
	handtrack.Thumb:  "196", // red
	handtrack.Index:  "208", // orange
	handtrack.Middle: "226", // yellow
	handtrack.Ring:   "46",  // green
	handtrack.Little: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type previewModel struct {
	drv       *retarget.Driver
	chart     *streamlinechart.Model
	width     int
	height    int
	logs      []string
	bones     int
	lastErr   error
	quitting  bool
	lastCurls map[handtrack.Finger]float64 // chart freezes while these stay the same
}

func (m *previewModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *previewModel) hasMovement(curls map[handtrack.Finger]float64) bool {
	if m.lastCurls == nil {
		return true
	}
	for f, v := range curls {
		if last, ok := m.lastCurls[f]; !ok || v != last {
			return true
		}
	}
	return false
}

type stateMsg retarget.State
type logMsg string

func waitForState(drv *retarget.Driver) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-drv.States())
	}
}

func waitForLog(drv *retarget.Driver) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-drv.Logs())
	}
}

func (m *previewModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *previewModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialPreviewModel(drv *retarget.Driver) previewModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 100),
	)
	for _, f := range handtrack.AllFingers() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fingerColors[f]))
		chart.SetDataSetStyles(f.String(), runes.ThinLineStyle, style)
	}
	return previewModel{
		drv:   drv,
		chart: &chart,
	}
}

func (m previewModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.drv),
		waitForLog(m.drv),
	)
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := retarget.State(msg)
		m.lastErr = state.Error
		m.bones = len(state.Bones)
		if state.Curls != nil && m.hasMovement(state.Curls) {
			for f, v := range state.Curls {
				m.chart.PushDataSet(f.String(), v*100)
			}
			m.chart.DrawAll()
			m.lastCurls = state.Curls
		}
		return m, waitForState(m.drv)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.drv)
	}

	return m, nil
}

func (m previewModel) View() string {
	if m.quitting {
		return "Preview stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("handremap preview"))
	sb.WriteString(fmt.Sprintf(" - %s, %d bones at %d Hz", m.drv.Container().Skeleton().Name, m.bones, m.drv.Hz()))
	if m.lastErr != nil {
		sb.WriteString(statusStyle.Render("  [" + m.lastErr.Error() + "]"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, f := range handtrack.AllFingers() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(fingerColors[f])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+f.String()+" %")
	}
	return strings.Join(items, "  ")
}

func (c *PreviewCommand) Execute(args []string) error {
	curls, err := parseCurls(c.Curl)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := openSession(ctx, curls)
	if err != nil {
		return err
	}
	defer s.close()

	hz := s.cfg.Hz
	if c.Hz > 0 {
		hz = c.Hz
	}
	drv, err := retarget.NewDriver(retarget.DriverConfig{
		Node:      s.node,
		Container: s.container,
		Source:    s.source,
		Hz:        hz,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := drv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Driver error: %v", err)
		}
	}()

	p := tea.NewProgram(initialPreviewModel(drv), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	return nil
}

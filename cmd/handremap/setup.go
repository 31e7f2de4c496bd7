package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/handremap/pkg/config"
	"github.com/gwillem/handremap/pkg/glove"
	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("handremap setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := config.Default()
	if existing, err := loadConfig(); err == nil {
		cfg = existing
	}

	if err := askSkeleton(cfg); err != nil {
		return err
	}
	if err := askSource(cfg); err != nil {
		return err
	}

	if cfg.Source.Kind == config.SourceGlove {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating Glove ━━━"))
		fmt.Println()
		hand, err := cfg.Hand()
		if err != nil {
			return err
		}
		cal, err := calibrateGlove(cfg.Source.Port, hand)
		if err != nil {
			return fmt.Errorf("calibrate glove: %w", err)
		}
		cfg.Source.Calibration = cal
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Check the mapping with: " + headerStyle.Render("handremap inspect"))
	fmt.Println("Watch it live with:     " + headerStyle.Render("handremap preview"))
	return nil
}

func askSkeleton(cfg *config.Config) error {
	skipRoot, wristOnly := cfg.SkipRoot, cfg.WristOnly
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Target skeleton").
				Description("glTF/GLB or YAML file; leave empty for the built-in UE4 hand").
				Value(&cfg.Skeleton.Path),
			huh.NewSelect[string]().
				Title("Bone naming").
				Options(
					huh.NewOption("UE4 mannequin, right hand", mapping.UE4DefaultRight.String()),
					huh.NewOption("UE4 mannequin, left hand", mapping.UE4DefaultLeft.String()),
					huh.NewOption("Custom mapping file", mapping.Custom.String()),
				).
				Value(&cfg.Convention),
			huh.NewConfirm().
				Title("Leave the wrist bone to the body animation?").
				Description("Skips the wrist pair; fingers follow the animated wrist").
				Value(&skipRoot),
			huh.NewConfirm().
				Title("Drive the wrist only?").
				Value(&wristOnly),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	cfg.SkipRoot, cfg.WristOnly = skipRoot, wristOnly

	if cfg.Convention == mapping.Custom.String() {
		return huh.NewInput().
			Title("Mapping file").
			Description("YAML list of joint/bone pairs").
			Value(&cfg.Mapping).
			Run()
	}
	cfg.Mapping = ""
	return nil
}

func askSource(cfg *config.Config) error {
	err := huh.NewSelect[string]().
		Title("Tracking source").
		Options(
			huh.NewOption("Static pose (for testing)", config.SourceStatic),
			huh.NewOption("WebSocket stream", config.SourceWebSocket),
			huh.NewOption("Servo data glove", config.SourceGlove),
		).
		Value(&cfg.Source.Kind).
		Run()
	if err != nil {
		return err
	}

	switch cfg.Source.Kind {
	case config.SourceWebSocket:
		if cfg.Source.URL == "" {
			cfg.Source.URL = "ws://localhost:9000/hands"
		}
		return huh.NewInput().Title("Stream URL").Value(&cfg.Source.URL).Run()

	case config.SourceGlove:
		fmt.Println("Scanning for gloves...")
		ports := findGloves()
		if len(ports) == 0 {
			fmt.Println("No glove found.")
			fmt.Println("Make sure the glove is connected and powered on.")
			os.Exit(1)
		}
		cfg.Source.Port = ports[0]
		if len(ports) == 1 {
			return nil
		}
		var options []huh.Option[string]
		for _, p := range ports {
			options = append(options, huh.NewOption(p, p))
		}
		return huh.NewSelect[string]().
			Title("Which port is the glove on?").
			Options(options...).
			Value(&cfg.Source.Port).
			Run()
	}
	return nil
}

func findGloves() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: 1_000_000,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, glove.FingerCount)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}
		if isGlove(servos) {
			fmt.Printf("  Found glove on %s\n", port)
			found = append(found, port)
		}
	}
	return found
}

func isGlove(servos []feetech.FoundServo) bool {
	if len(servos) != glove.FingerCount {
		return false
	}
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for _, id := range glove.DefaultIDs {
		if !ids[id] {
			return false
		}
	}
	return true
}

func calibrateGlove(port string, hand handtrack.Hand) (glove.Calibration, error) {
	provisional := make(glove.Calibration, len(glove.DefaultIDs))
	for f, id := range glove.DefaultIDs {
		provisional[f] = glove.SensorCalibration{ID: id}
	}
	g, err := glove.Open(port, hand, provisional)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	if err := g.Release(context.Background()); err != nil {
		return nil, fmt.Errorf("release servos: %w", err)
	}

	open, err := capturePose(g, "Open your hand and spread the fingers")
	if err != nil {
		return nil, err
	}
	closed, err := capturePose(g, "Make a fist")
	if err != nil {
		return nil, err
	}

	cal := glove.Calibrate(open, closed)
	for _, f := range handtrack.AllFingers() {
		sc := cal[f]
		if sc.RangeMax-sc.RangeMin < 100 {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  %s moved only %d steps; check the servo linkage", f, sc.RangeMax-sc.RangeMin)))
		}
	}
	return cal, nil
}

func capturePose(g *glove.Glove, prompt string) (map[handtrack.Finger]int, error) {
	fmt.Println(subHeaderStyle.Render(prompt))
	p := tea.NewProgram(captureModel{glove: g, raw: map[handtrack.Finger]int{}})
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(captureModel)
	if m.aborted {
		os.Exit(0)
	}
	return m.raw, nil
}

// Capture TUI model: shows live raw positions until Enter.
type captureModel struct {
	glove    *glove.Glove
	raw      map[handtrack.Finger]int
	err      error
	aborted  bool
	quitting bool
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m captureModel) Init() tea.Cmd {
	return tick()
}

func (m captureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if len(m.raw) == glove.FingerCount {
				m.quitting = true
				return m, tea.Quit
			}
		case "q", "ctrl+c":
			m.aborted = true
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		raw, err := m.glove.ReadRaw(context.Background())
		m.err = err
		if err == nil {
			m.raw = raw
		}
		return m, tick()
	}
	return m, nil
}

func (m captureModel) View() string {
	if m.quitting {
		return ""
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	fingerStyle := cellStyle.Foreground(lipgloss.Color("14"))
	currentStyle := cellStyle.Foreground(lipgloss.Color("11"))

	rows := make([][]string, 0, glove.FingerCount)
	for _, f := range handtrack.AllFingers() {
		cur := "-"
		if v, ok := m.raw[f]; ok {
			cur = fmt.Sprintf("%d", v)
		}
		rows = append(rows, []string{f.String(), fmt.Sprintf("%d", glove.DefaultIDs[f]), cur})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Finger", "Servo", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return fingerStyle
			case col == 2:
				return currentStyle
			default:
				return cellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("Press Enter to record this pose"))
	return sb.String()
}

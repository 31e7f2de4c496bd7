package main

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type InspectCommand struct {
	Dump bool `long:"dump" description:"Dump the resolved table and one evaluation"`
}

func (c *InspectCommand) Execute(args []string) error {
	ctx := context.Background()
	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.close()

	t := s.node.Table
	fmt.Println(headerStyle.Render("handremap inspect"))
	fmt.Printf("Skeleton %s: %d bones, %d active\n",
		s.container.Skeleton().Name, len(s.container.Skeleton().Bones), s.container.Len())
	fmt.Printf("Convention %s, hand %s, skip root %v, wrist only %v\n",
		s.node.Convention, t.Hand, s.node.SkipRoot, s.node.WristOnly)
	fmt.Println()

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))

	rows := make([][]string, 0, len(t.Pairs))
	resolved := make([]bool, 0, len(t.Pairs))
	for _, p := range t.Pairs {
		parent := "-"
		if p.ParentIndex >= 0 {
			parent = s.container.BoneName(p.ParentIndex)
		}
		status := "missing"
		if p.Resolved() {
			status = fmt.Sprintf("#%d", p.BoneIndex)
		}
		rows = append(rows, []string{p.Joint.String(), p.Bone, status, parent})
		resolved = append(resolved, p.Resolved())
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Bone", "Index", "Parent").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 2 && row >= 0 && row < len(resolved) {
				if resolved[row] {
					return cellStyle.Foreground(lipgloss.Color("10"))
				}
				return cellStyle.Foreground(lipgloss.Color("9"))
			}
			return cellStyle
		})
	fmt.Println(tbl.Render())
	fmt.Println()

	axis := t.Adjustment.Rotate(mgl64.Vec3{1, 0, 0})
	angle := 2 * math.Acos(math.Min(1, math.Abs(t.Adjustment.W))) * 180 / math.Pi
	fmt.Println(subHeaderStyle.Render("Adjustment"))
	fmt.Printf("  %.1f deg, tracked +X -> (%.2f, %.2f, %.2f)\n", angle, axis[0], axis[1], axis[2])
	fmt.Println()

	if s.node.IsValidToEvaluate(s.container) {
		fmt.Println(successStyle.Render(fmt.Sprintf("%d of %d pairs resolved", t.ResolvedCount(), len(t.Pairs))))
	} else {
		fmt.Println(errorStyle.Render("Nothing to evaluate: no pair resolved"))
	}

	if c.Dump {
		cfg := spew.NewDefaultConfig()
		cfg.DisableCapacities = true
		cfg.DisablePointerAddresses = true
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("Table"))
		fmt.Println(cfg.Sdump(t))
		fmt.Println(subHeaderStyle.Render("Evaluation"))
		fmt.Println(cfg.Sdump(s.node.Evaluate(evalContext(s))))
	}
	return nil
}

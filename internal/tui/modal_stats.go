package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/portal/internal/model"
)

// StatsModal charts how many panels each dashboard holds.
type StatsModal struct {
	scrollView
	dashboards []model.DashboardDescriptor
}

func NewStatsModal(ctx ModalContext, dashboards []model.DashboardDescriptor) *StatsModal {
	return &StatsModal{
		scrollView: newScrollView(ctx),
		dashboards: dashboards,
	}
}

func (s *StatsModal) ID() string { return "stats" }

func (s *StatsModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	return s.update(msg, "i")
}

func (s *StatsModal) View(width, height int) string {
	status := append(append([]string{}, scrollStatus...), "i: Toggle Stats", "ESC: Close")
	return renderModalFrame(&s.viewport, "Dashboard Statistics", status, s.content, width, height)
}

var barPalette = []lipgloss.Color{"39", "42", "208", "201", "220", "244"}

func (s *StatsModal) content(width int) string {
	if len(s.dashboards) == 0 {
		return dimStyle.Render("No dashboards.")
	}

	totalPanels := 0
	owners := make(map[string]struct{})
	for _, d := range s.dashboards {
		totalPanels += len(d.Panels)
		if d.Owner != "" {
			owners[d.Owner] = struct{}{}
		}
	}

	summary := fmt.Sprintf("%d dashboards | %d panels | %d owners", len(s.dashboards), totalPanels, len(owners))

	const barWidth, barGap = 3, 1
	chartWidth := max(20, min(width, len(s.dashboards)*(barWidth+barGap)))
	chartHeight := 8

	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(barGap),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)

	var legend []string
	for i, d := range s.dashboards {
		color := barPalette[i%len(barPalette)]
		style := lipgloss.NewStyle().Foreground(color).Background(color)
		bc.Push(barchart.BarData{
			Label: d.URL,
			Values: []barchart.BarValue{
				{Name: d.URL, Value: float64(len(d.Panels)), Style: style},
			},
		})
		swatch := lipgloss.NewStyle().Foreground(color).Render("■")
		legend = append(legend, fmt.Sprintf("%s %-20s %3d", swatch, d.URL, len(d.Panels)))
	}
	bc.Draw()

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(summary),
		"",
		bc.View(),
		"",
		strings.Join(legend, "\n"),
	)
}

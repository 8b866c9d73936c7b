package board

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const defaultColumnWidth = 24

type RenderOptions struct {
	Now time.Time
	// ColumnWidth is the inner width of a stage column.
	ColumnWidth int
}

func renderView(snapshot domain.PipelineSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Sales Pipeline"),
		s.header.Render(fmt.Sprintf("records: %d  total: %s  revision: %d", snapshot.Count(), snapshot.Total(), snapshot.Revision)),
		conversionLine(snapshot.ConversionRate(), s),
	}

	if snapshot.Count() == 0 {
		lines = append(lines, s.empty.Render("No customer records."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	width := opts.ColumnWidth
	if width <= 0 {
		width = defaultColumnWidth
	}

	columns := make([]string, 0, domain.StageCount)
	for _, total := range snapshot.Stages {
		columns = append(columns, renderColumn(total, snapshot.ByStage(total.Stage), opts.Now, width, s))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, columns...))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderColumn(total domain.StageTotal, records []domain.CustomerRecord, now time.Time, width int, s styles) string {
	title := s.stage
	if total.Stage.Terminal() {
		title = s.terminal
	}

	parts := []string{
		title.Render(fmt.Sprintf("%s (%d)", total.Stage.Label(), total.Count)),
		s.total.Render(total.Total.String()),
	}
	for _, record := range records {
		parts = append(parts, s.card.Render(renderCard(record, now, s)))
	}
	if len(records) == 0 {
		parts = append(parts, s.card.Render(s.empty.Render("empty")))
	}

	return s.column.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderCard(record domain.CustomerRecord, now time.Time, s styles) string {
	lines := []string{
		s.detail.Render(strings.TrimSpace(record.Name)),
		s.detail.Render(record.Budget.String()),
	}

	meta := make([]string, 0, 2)
	if record.Interest != "" {
		meta = append(meta, string(record.Interest))
	}
	if record.AssignedTo != "" {
		meta = append(meta, "@"+string(record.AssignedTo))
	}
	if len(meta) > 0 {
		lines = append(lines, s.header.Render(strings.Join(meta, " ")))
	}

	if !now.IsZero() && !record.Stage.Terminal() && record.Overdue(now) {
		lines = append(lines, s.warning.Render("[overdue]"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func conversionLine(rate float64, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.header.Render("conversion: "),
		renderProgressBar(rate*100, 20, s),
		s.header.Render(fmt.Sprintf(" %.1f%%", rate*100)),
	)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

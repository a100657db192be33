package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tripbudget/internal/core"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	okStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table. The first column is left aligned, the
// others right aligned. A row holding the single cell "---" renders a separator.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(" " + padRight(h, widths[i]) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i == 0 {
				cell = padRight(cell, widths[i])
			} else {
				cell = padLeft(cell, widths[i])
			}
			b.WriteString(valueStyle.Render(" " + cell + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// padRight and padLeft pad by display width; fmt's %-*s counts bytes, which
// misaligns currency symbols such as "€".
func padRight(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func padLeft(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

func optionalAmount(v *float64, c *core.Currency) string {
	if v == nil {
		return "-"
	}
	return core.FormatAmount(*v, c)
}

// RenderBudget renders a full budget snapshot.
func RenderBudget(name string, s core.BudgetSnapshot) string {
	target := &s.TargetCurrency
	var b strings.Builder

	b.WriteString(RenderTitle(fmt.Sprintf("%s  (%s)", name, s.TargetCurrency.Code)))
	b.WriteString("\n\n")

	estimated := core.FormatAmount(s.TotalEstimatedCost, target)
	if s.EstimatedFromStored {
		estimated += mutedStyle.Render(" (stored)")
	}
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Budget:   "), valueStyle.Render(optionalAmount(s.Budget, target)))
	fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render("Estimated:"), valueStyle.Render(estimated))
	fmt.Fprintf(&b, "  %s %s\n\n", mutedStyle.Render("Status:   "), renderStatus(s))

	catRows := make([][]string, 0, len(core.Categories))
	for _, c := range core.Categories {
		cb := s.Categories[c]
		budgeted := "-"
		if cb.Budgeted > 0 {
			budgeted = core.FormatAmount(cb.Budgeted, target)
		}
		catRows = append(catRows, []string{c.String(), budgeted, core.FormatAmount(cb.Estimated, target)})
	}
	b.WriteString(RenderTable(Table{
		Title:   "By Category",
		Headers: []string{"Category", "Budgeted", "Estimated"},
		Rows:    catRows,
	}))

	if len(s.Days) > 0 {
		dayRows := make([][]string, 0, len(s.Days))
		for _, d := range s.Days {
			dayRows = append(dayRows, []string{
				fmt.Sprintf("%d  %s  %s", d.DayIndex, d.Date.String(), d.City),
				core.FormatAmount(d.Budgeted, target),
				core.FormatAmount(d.Estimated, target),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "By Stop",
			Headers: []string{"Stop", "Budgeted", "Estimated"},
			Rows:    dayRows,
		}))
	}

	var costRows [][]string
	for _, group := range [][]core.ConvertedCostRecord{s.Costs.Accommodations, s.Costs.Transport, s.Costs.Activities, s.Costs.CostItems} {
		for _, r := range group {
			amount := core.FormatAmount(r.ConvertedAmount, target)
			if r.Unconverted {
				amount += " ?"
			}
			costRows = append(costRows, []string{r.Label, string(r.Source), amount})
		}
	}
	if len(costRows) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Costs",
			Headers: []string{"Item", "Source", "Amount"},
			Rows:    costRows,
		}))
	}

	if len(s.Alerts) > 0 {
		b.WriteString("\n")
		for _, a := range s.Alerts {
			b.WriteString("  ")
			b.WriteString(alertStyle.Render("! " + a))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderStatus(s core.BudgetSnapshot) string {
	switch {
	case s.Budget == nil:
		return mutedStyle.Render("no budget")
	case s.TotalEstimatedCost > *s.Budget:
		return warnStyle.Render("over budget")
	default:
		return okStyle.Render("within budget")
	}
}

// RenderSummaries renders the multi-trip list.
func RenderSummaries(summaries []core.TripBudgetSummary) string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		status := string(s.Status)
		switch s.Status {
		case core.StatusOverBudget:
			status = warnStyle.Render(status)
		case core.StatusWithinBudget:
			status = okStyle.Render(status)
		default:
			status = mutedStyle.Render(status)
		}
		rows = append(rows, []string{
			s.Name,
			s.CurrencyCode,
			optionalAmount(s.Budget, nil),
			optionalAmount(s.EstimatedCost, nil),
			status,
		})
	}
	return RenderTable(Table{
		Title:   "Trips",
		Headers: []string{"Trip", "Currency", "Budget", "Estimated", "Status"},
		Rows:    rows,
	})
}

// RenderCurrencies renders the currency reference data.
func RenderCurrencies(currencies []core.Currency) string {
	rows := make([][]string, 0, len(currencies))
	for _, c := range currencies {
		rows = append(rows, []string{c.Code, c.Name, c.Symbol, fmt.Sprintf("%.4f", c.ExchangeRateToUSD)})
	}
	return RenderTable(Table{
		Title:   "Currencies (per 1 USD)",
		Headers: []string{"Code", "Name", "Symbol", "Rate"},
		Rows:    rows,
	})
}

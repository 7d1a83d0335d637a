package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"spendlog/internal/core"
	"spendlog/internal/expenselist"
	"spendlog/internal/upload"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	upStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	titleWidth    = 28
	categoryWidth = 13
	barWidth      = 24
)

// termNotifier prints write outcomes the way a toast would show them.
type termNotifier struct {
	out io.Writer
}

func (n termNotifier) Success(msg string) {
	fmt.Fprintln(n.out, successStyle.Render("✓ "+msg))
}

func (n termNotifier) Error(msg string) {
	fmt.Fprintln(n.out, errorStyle.Render("✗ "+msg))
}

func renderPage(w io.Writer, view expenselist.View, pageCount int) {
	q := view.Query
	arrow := "↓"
	if q.SortOrder == core.SortAsc {
		arrow = "↑"
	}
	header := fmt.Sprintf("%-36s  %-*s  %-*s  %-10s  %10s",
		"ID", titleWidth, "Title", categoryWidth, "Category", "Date", "Amount")
	fmt.Fprintln(w, headerStyle.Render(header))

	if len(view.Page.Items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No expenses found."))
	}
	for _, e := range view.Page.Items {
		fmt.Fprintf(w, "%-36s  %-*s  %-*s  %-10s  %10s\n",
			e.ID,
			titleWidth, ansi.Truncate(e.Title, titleWidth, "…"),
			categoryWidth, e.Category,
			e.ExpenseDate.String(),
			e.Amount.String())
	}

	status := fmt.Sprintf("page %d/%d · %d total · sort %s %s · %d per page",
		q.Page, pageCount, view.Page.Total, q.SortBy, arrow, q.PageSize)
	if q.Search != "" {
		status += fmt.Sprintf(" · search %q", q.Search)
	}
	fmt.Fprintln(w, mutedStyle.Render(status))
}

func renderExpense(w io.Writer, e core.Expense) {
	lines := []string{
		headerStyle.Render(e.Title),
		fmt.Sprintf("%s  %s  %s", e.Amount.String(), e.Category, e.ExpenseDate.String()),
	}
	if e.Description != "" {
		lines = append(lines, mutedStyle.Render(e.Description))
	}
	lines = append(lines, mutedStyle.Render(e.ID))
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func renderKPI(label string, k core.KPI) string {
	trend := fmt.Sprintf("%+.1f%%", k.TrendPercent)
	if k.TrendPercent > 0 {
		trend = upStyle.Render(trend)
	} else {
		trend = successStyle.Render(trend)
	}
	return boxStyle.Render(strings.Join([]string{
		mutedStyle.Render(label),
		headerStyle.Render(fmt.Sprintf("%.2f", k.Value)),
		trend + " " + k.TrendLabel,
		mutedStyle.Render(k.Subtitle),
	}, "\n"))
}

func renderDashboard(w io.Writer, d core.Dashboard) {
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
		renderKPI("Total expenses", d.KPIs.TotalExpenses),
		renderKPI("This month", d.KPIs.ThisMonth),
		renderKPI("Expenses", d.KPIs.ExpenseCount),
		renderKPI("Average", d.KPIs.AvgPerExpense),
	))

	fmt.Fprintln(w, headerStyle.Render("Monthly spending"))
	var peak int64
	for _, m := range d.MonthlySpending {
		peak = max(peak, m.Amount)
	}
	for _, m := range d.MonthlySpending {
		fmt.Fprintf(w, "%-9s %s %d\n", ansi.Truncate(m.Month, 9, ""), bar(m.Amount, peak), m.Amount)
	}

	fmt.Fprintln(w, headerStyle.Render("By category"))
	if len(d.ByCategory) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No spending in the last 6 months."))
	}
	for _, c := range d.ByCategory {
		fmt.Fprintf(w, "%-*s %s %d\n", categoryWidth, c.Category, bar(c.Amount, d.ByCategory[0].Amount), c.Amount)
	}
}

func bar(v, peak int64) string {
	n := 0
	if peak > 0 {
		n = int(v * barWidth / peak)
	}
	return headerStyle.Render(strings.Repeat("█", n)) + mutedStyle.Render(strings.Repeat("░", barWidth-n))
}

func renderProgress(w io.Writer, item upload.Item) {
	filled := item.Progress * barWidth / 100
	progress := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	status := mutedStyle.Render(string(item.Status))
	if item.Status == upload.StatusCompleted {
		status = successStyle.Render(string(item.Status))
	}
	fmt.Fprintf(w, "%-24s %s %3d%% %s\n", ansi.Truncate(item.Name, 24, "…"), progress, item.Progress, status)
}

func renderDraft(w io.Writer, f expenselist.Form) {
	amount := f.Amount
	if amount == "" {
		amount = mutedStyle.Render("(not found)")
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join([]string{
		headerStyle.Render("Receipt draft"),
		"amount   " + amount,
		"category " + f.Category,
		"date     " + f.ExpenseDate,
	}, "\n")))
}

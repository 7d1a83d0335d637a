package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/repository"
)

const (
	currentPeriodDays  = 180
	previousPeriodDays = 365
	trendMonths        = 6
)

var chartColors = []string{
	"var(--chart-1)", "var(--chart-2)", "var(--chart-3)",
	"var(--chart-4)", "var(--chart-5)", "var(--chart-6)",
}

// DashboardService aggregates every stored expense into the dashboard summary.
type DashboardService struct {
	reader repository.ExpenseReader
	now    func() time.Time
}

func NewDashboardService(reader repository.ExpenseReader) *DashboardService {
	return &DashboardService{reader: reader, now: time.Now}
}

// WithClock replaces the clock used to decide "today".
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

func (s *DashboardService) Dashboard(ctx context.Context) (core.Dashboard, error) {
	expenses, err := s.reader.All(ctx)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load expenses: %w", err)
	}
	n := s.now()
	return BuildDashboard(expenses, core.NewDate(n.Year(), int(n.Month()), n.Day())), nil
}

type monthKey struct {
	year  int
	month time.Month
}

func keyOf(d core.Date) monthKey {
	return monthKey{year: d.Year(), month: d.Month()}
}

// BuildDashboard computes the summary relative to today.
//
// The current period is every expense dated on or after today-180d (future
// dates included); the previous period spans [today-365d, today-180d).
func BuildDashboard(expenses []core.Expense, today core.Date) core.Dashboard {
	thisMonthStart := today.MonthStart()
	lastMonthStart := core.Date{Time: thisMonthStart.AddDate(0, 0, -1)}.MonthStart()
	currentStart := today.AddDate(0, 0, -currentPeriodDays)
	previousStart := today.AddDate(0, 0, -previousPeriodDays)

	var (
		current                        []core.Expense
		totalCurrent, totalPrev        int64
		countCurrent, countPrev        int64
		thisMonthTotal, lastMonthTotal int64
	)
	for _, e := range expenses {
		d := e.ExpenseDate.Time
		switch {
		case !d.Before(currentStart):
			current = append(current, e)
			totalCurrent += e.Amount.Cents
			countCurrent++
		case !d.Before(previousStart):
			totalPrev += e.Amount.Cents
			countPrev++
		}
		switch {
		case !d.Before(thisMonthStart.Time):
			thisMonthTotal += e.Amount.Cents
		case !d.Before(lastMonthStart.Time):
			lastMonthTotal += e.Amount.Cents
		}
	}

	avgCurrent := average(totalCurrent, countCurrent)
	avgPrev := average(totalPrev, countPrev)

	totalTrend := trendPercent(cents(totalCurrent), cents(totalPrev))
	monthTrend := trendPercent(cents(thisMonthTotal), cents(lastMonthTotal))
	countTrend := trendPercent(decimal.NewFromInt(countCurrent), decimal.NewFromInt(countPrev))
	avgTrend := trendPercent(avgCurrent, avgPrev)

	dash := core.Dashboard{
		KPIs: core.DashboardKPIs{
			TotalExpenses: core.KPI{
				Value:        round2(cents(totalCurrent)),
				PrevValue:    round2(cents(totalPrev)),
				TrendPercent: totalTrend,
				TrendLabel:   trendLabel(totalTrend, "Up from last period", "Down from last period"),
				Subtitle:     "Total spent in the last 6 months",
			},
			ThisMonth: core.KPI{
				Value:        round2(cents(thisMonthTotal)),
				PrevValue:    round2(cents(lastMonthTotal)),
				TrendPercent: monthTrend,
				TrendLabel:   trendLabel(monthTrend, "Up from last month", "Down from last month"),
				Subtitle:     "Current month spending",
			},
			ExpenseCount: core.KPI{
				Value:        float64(countCurrent),
				PrevValue:    float64(countPrev),
				TrendPercent: countTrend,
				TrendLabel:   trendLabel(countTrend, "More transactions", "Fewer transactions"),
				Subtitle:     "Number of expense entries",
			},
			AvgPerExpense: core.KPI{
				Value:        round2(avgCurrent),
				PrevValue:    round2(avgPrev),
				TrendPercent: avgTrend,
				TrendLabel:   trendLabel(avgTrend, "Slightly higher average", "Slightly lower average"),
				Subtitle:     "Average transaction size",
			},
		},
	}

	monthly := map[monthKey]int64{}
	essential := map[monthKey]int64{}
	other := map[monthKey]int64{}
	byCategory := map[core.Category]int64{}
	for _, e := range current {
		k := keyOf(e.ExpenseDate)
		monthly[k] += e.Amount.Cents
		if e.Category.Essential() {
			essential[k] += e.Amount.Cents
		} else {
			other[k] += e.Amount.Cents
		}
		cat := e.Category
		if cat == "" {
			cat = core.CategoryOther
		}
		byCategory[cat] += e.Amount.Cents
	}

	for _, k := range lastMonths(today, trendMonths) {
		name := k.month.String()
		dash.MonthlySpending = append(dash.MonthlySpending, core.MonthlySpending{
			Month: name, Amount: units(monthly[k]),
		})
		dash.MonthlyByType = append(dash.MonthlyByType, core.MonthlyByType{
			Month: name, Essential: units(essential[k]), Other: units(other[k]),
		})
		dash.DailyTrend = append(dash.DailyTrend, core.TrendPoint{
			Date:  core.NewDate(k.year, int(k.month), 1).String(),
			Spent: units(monthly[k]),
		})
	}

	dash.ByCategory = make([]core.CategoryAmount, 0, len(byCategory))
	for cat, total := range byCategory {
		dash.ByCategory = append(dash.ByCategory, core.CategoryAmount{Category: cat, Amount: total})
	}
	// sort on cents, then name, before truncating to whole units
	sort.Slice(dash.ByCategory, func(i, j int) bool {
		a, b := dash.ByCategory[i], dash.ByCategory[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Category < b.Category
	})
	for i := range dash.ByCategory {
		dash.ByCategory[i].Amount = units(dash.ByCategory[i].Amount)
		dash.ByCategory[i].Fill = chartColors[i%len(chartColors)]
	}

	return dash
}

// lastMonths returns the n months ending with today's, oldest first.
func lastMonths(today core.Date, n int) []monthKey {
	out := make([]monthKey, n)
	y, m := today.Year(), today.Month()
	for i := n - 1; i >= 0; i-- {
		out[i] = monthKey{year: y, month: m}
		m--
		if m < time.January {
			m = time.December
			y--
		}
	}
	return out
}

func cents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// units truncates cents to whole currency units.
func units(c int64) int64 {
	return c / 100
}

func average(totalCents, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return cents(totalCents).DivRound(decimal.NewFromInt(count), 8)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// trendPercent is the relative change in percent with one decimal. With no
// previous value it is 100 when something was spent and 0 otherwise.
func trendPercent(curr, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		if curr.IsPositive() {
			return 100
		}
		return 0
	}
	return curr.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

func trendLabel(pct float64, up, down string) string {
	if pct >= 0 {
		return up
	}
	return down
}

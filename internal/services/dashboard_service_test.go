package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/core"
	"spendlog/internal/repository/memory"
)

func expense(title string, cents int64, cat core.Category, y, m, d int) core.Expense {
	return core.Expense{
		ID:          title,
		Title:       title,
		Amount:      core.Money{Cents: cents},
		Category:    cat,
		ExpenseDate: core.NewDate(y, m, d),
	}
}

func sampleExpenses() []core.Expense {
	return []core.Expense{
		expense("groceries", 10000, core.CategoryFood, 2025, 6, 10),
		expense("rent", 80000, core.CategoryRent, 2025, 5, 20),
		expense("shoes", 5000, core.CategoryShopping, 2025, 3, 1),
		expense("gift", 20000, core.CategoryOther, 2024, 10, 1),
		expense("ancient", 99900, core.CategoryOther, 2024, 1, 1),
	}
}

func TestBuildDashboard_KPIs(t *testing.T) {
	dash := BuildDashboard(sampleExpenses(), core.NewDate(2025, 6, 15))
	k := dash.KPIs

	assert.Equal(t, 950.0, k.TotalExpenses.Value)
	assert.Equal(t, 200.0, k.TotalExpenses.PrevValue)
	assert.Equal(t, 375.0, k.TotalExpenses.TrendPercent)
	assert.Equal(t, "Up from last period", k.TotalExpenses.TrendLabel)
	assert.Equal(t, "Total spent in the last 6 months", k.TotalExpenses.Subtitle)

	assert.Equal(t, 100.0, k.ThisMonth.Value)
	assert.Equal(t, 800.0, k.ThisMonth.PrevValue)
	assert.Equal(t, -87.5, k.ThisMonth.TrendPercent)
	assert.Equal(t, "Down from last month", k.ThisMonth.TrendLabel)

	assert.Equal(t, 3.0, k.ExpenseCount.Value)
	assert.Equal(t, 1.0, k.ExpenseCount.PrevValue)
	assert.Equal(t, 200.0, k.ExpenseCount.TrendPercent)
	assert.Equal(t, "More transactions", k.ExpenseCount.TrendLabel)

	assert.Equal(t, 316.67, k.AvgPerExpense.Value)
	assert.Equal(t, 200.0, k.AvgPerExpense.PrevValue)
	assert.Equal(t, 58.3, k.AvgPerExpense.TrendPercent)
	assert.Equal(t, "Slightly higher average", k.AvgPerExpense.TrendLabel)
}

func TestBuildDashboard_Series(t *testing.T) {
	dash := BuildDashboard(sampleExpenses(), core.NewDate(2025, 6, 15))

	assert.Equal(t, []core.MonthlySpending{
		{Month: "January", Amount: 0},
		{Month: "February", Amount: 0},
		{Month: "March", Amount: 50},
		{Month: "April", Amount: 0},
		{Month: "May", Amount: 800},
		{Month: "June", Amount: 100},
	}, dash.MonthlySpending)

	require.Len(t, dash.MonthlyByType, 6)
	assert.Equal(t, core.MonthlyByType{Month: "March", Essential: 0, Other: 50}, dash.MonthlyByType[2])
	assert.Equal(t, core.MonthlyByType{Month: "May", Essential: 800, Other: 0}, dash.MonthlyByType[4])

	assert.Equal(t, []core.CategoryAmount{
		{Category: core.CategoryRent, Amount: 800, Fill: "var(--chart-1)"},
		{Category: core.CategoryFood, Amount: 100, Fill: "var(--chart-2)"},
		{Category: core.CategoryShopping, Amount: 50, Fill: "var(--chart-3)"},
	}, dash.ByCategory)

	require.Len(t, dash.DailyTrend, 6)
	assert.Equal(t, core.TrendPoint{Date: "2025-01-01", Spent: 0}, dash.DailyTrend[0])
	assert.Equal(t, core.TrendPoint{Date: "2025-06-01", Spent: 100}, dash.DailyTrend[5])
}

func TestBuildDashboard_Empty(t *testing.T) {
	dash := BuildDashboard(nil, core.NewDate(2025, 6, 15))

	assert.Equal(t, 0.0, dash.KPIs.TotalExpenses.Value)
	assert.Equal(t, 0.0, dash.KPIs.TotalExpenses.TrendPercent)
	assert.Equal(t, "Up from last period", dash.KPIs.TotalExpenses.TrendLabel)
	assert.Equal(t, 0.0, dash.KPIs.AvgPerExpense.Value)
	assert.Len(t, dash.MonthlySpending, 6)
	assert.NotNil(t, dash.ByCategory)
	assert.Empty(t, dash.ByCategory)
}

func TestBuildDashboard_MonthsWrapYear(t *testing.T) {
	dash := BuildDashboard(nil, core.NewDate(2025, 2, 10))

	months := make([]string, 0, len(dash.MonthlySpending))
	for _, m := range dash.MonthlySpending {
		months = append(months, m.Month)
	}
	assert.Equal(t, []string{"September", "October", "November", "December", "January", "February"}, months)
	assert.Equal(t, "2024-09-01", dash.DailyTrend[0].Date)
}

func TestBuildDashboard_TruncatesMonthlyAmounts(t *testing.T) {
	dash := BuildDashboard([]core.Expense{
		expense("a", 1299, core.CategoryFood, 2025, 6, 1),
	}, core.NewDate(2025, 6, 15))

	assert.Equal(t, int64(12), dash.MonthlySpending[5].Amount)
	assert.Equal(t, 12.99, dash.KPIs.ThisMonth.Value)
	assert.Equal(t, 100.0, dash.KPIs.ThisMonth.TrendPercent)
}

func TestBuildDashboard_FutureDatesCountAsCurrent(t *testing.T) {
	dash := BuildDashboard([]core.Expense{
		expense("later", 5000, core.CategoryFood, 2025, 9, 1),
	}, core.NewDate(2025, 6, 15))

	assert.Equal(t, 50.0, dash.KPIs.TotalExpenses.Value)
	assert.Equal(t, 50.0, dash.KPIs.ThisMonth.Value)
}

func TestDashboardService_UsesClock(t *testing.T) {
	store := memory.NewWithExpenses(sampleExpenses())
	svc := NewDashboardService(store).WithClock(func() time.Time {
		return time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	})

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 950.0, dash.KPIs.TotalExpenses.Value)
}

type failingReader struct{ memory.Store }

func (*failingReader) All(context.Context) ([]core.Expense, error) {
	return nil, errors.New("database is locked")
}

func TestDashboardService_PropagatesErrors(t *testing.T) {
	svc := NewDashboardService(&failingReader{})

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

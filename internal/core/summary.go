package core

// KPI is one headline figure of the dashboard compared with its previous period.
type KPI struct {
	Value        float64 `json:"value"`
	PrevValue    float64 `json:"prev_value"`
	TrendPercent float64 `json:"trend_percent"`
	TrendLabel   string  `json:"trend_label"`
	Subtitle     string  `json:"subtitle"`
}

type DashboardKPIs struct {
	TotalExpenses KPI `json:"total_expenses"`
	ThisMonth     KPI `json:"this_month"`
	ExpenseCount  KPI `json:"expense_count"`
	AvgPerExpense KPI `json:"avg_per_expense"`
}

type MonthlySpending struct {
	Month  string `json:"month"`
	Amount int64  `json:"amount"`
}

type MonthlyByType struct {
	Month     string `json:"month"`
	Essential int64  `json:"essential"`
	Other     int64  `json:"other"`
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   int64    `json:"amount"`
	Fill     string   `json:"fill"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Spent int64  `json:"spent"`
}

// Dashboard is the aggregate summary served by GET /dashboard.
type Dashboard struct {
	KPIs            DashboardKPIs     `json:"kpis"`
	MonthlySpending []MonthlySpending `json:"monthly_spending"`
	MonthlyByType   []MonthlyByType   `json:"monthly_by_type"`
	ByCategory      []CategoryAmount  `json:"by_category"`
	DailyTrend      []TrendPoint      `json:"daily_trend"`
}

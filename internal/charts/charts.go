// Package charts renders dashboard series as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"spendlog/internal/core"
)

// Kind selects which dashboard series is drawn.
type Kind string

const (
	KindMonthly  Kind = "monthly"
	KindCategory Kind = "category"
)

var (
	ErrNoData      = errors.New("no data to chart")
	ErrUnknownKind = errors.New("unknown chart kind")
)

// palette mirrors the six dashboard chart colours.
var palette = []drawing.Color{
	drawing.ColorFromHex("e76e50"),
	drawing.ColorFromHex("2a9d90"),
	drawing.ColorFromHex("274754"),
	drawing.ColorFromHex("e8c468"),
	drawing.ColorFromHex("f4a462"),
	drawing.ColorFromHex("8c6bb1"),
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMonthly, KindCategory:
		return k, nil
	case "":
		return KindMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Render draws the requested series of d.
func Render(kind Kind, d core.Dashboard) ([]byte, error) {
	switch kind {
	case KindMonthly:
		return MonthlyBar(d.MonthlySpending)
	case KindCategory:
		return CategoryPie(d.ByCategory)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// MonthlyBar draws one bar per month.
func MonthlyBar(series []core.MonthlySpending) ([]byte, error) {
	var maxValue float64
	bars := make([]chart.Value, 0, len(series))
	for i, m := range series {
		v := float64(m.Amount)
		if v > maxValue {
			maxValue = v
		}
		bars = append(bars, chart.Value{
			Label: shortMonth(m.Month),
			Value: v,
			Style: chart.Style{
				FillColor:   palette[i%len(palette)],
				StrokeColor: palette[i%len(palette)],
			},
		})
	}
	if maxValue <= 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:    "Monthly spending",
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			// explicit range: equal bars would otherwise give an empty range
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render monthly chart: %w", err)
	}
	return buf.Bytes(), nil
}

// CategoryPie draws category shares; zero amounts are left out.
func CategoryPie(series []core.CategoryAmount) ([]byte, error) {
	values := make([]chart.Value, 0, len(series))
	for i, c := range series {
		if c.Amount <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %d", c.Category, c.Amount),
			Value: float64(c.Amount),
			Style: chart.Style{FillColor: palette[i%len(palette)]},
		})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	graph := chart.PieChart{
		Title:  "Spending by category",
		Width:  640,
		Height: 640,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buf.Bytes(), nil
}

func shortMonth(name string) string {
	if len(name) > 3 {
		return name[:3]
	}
	return name
}

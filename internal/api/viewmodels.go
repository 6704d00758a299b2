package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/savings"
)

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type PeriodView struct {
	Usage      float64 `json:"usage"`
	Period     string  `json:"period"`
	DataPoints int     `json:"dataPoints"`
}

type SavingsView struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
	Cost       float64 `json:"cost"`
}

// ComparisonView is the shape the dashboard's savings card reads.
type ComparisonView struct {
	Timeframe     string      `json:"timeframe"`
	CurrentPeriod PeriodView  `json:"currentPeriod"`
	PreviousYear  PeriodView  `json:"previousYear"`
	Savings       SavingsView `json:"savings"`
	Comparison    string      `json:"comparison"`
}

func newComparisonView(c savings.Comparison) ComparisonView {
	return ComparisonView{
		Timeframe: string(c.Timeframe),
		CurrentPeriod: PeriodView{
			Usage:      money(c.Current.Usage),
			Period:     c.Current.Label,
			DataPoints: c.Current.Count,
		},
		PreviousYear: PeriodView{
			Usage:      money(c.PreviousYear.Usage),
			Period:     c.PreviousYear.Label,
			DataPoints: c.PreviousYear.Count,
		},
		Savings: SavingsView{
			Absolute:   money(c.AbsoluteKWh),
			Percentage: money(c.Percent),
			Cost:       money(c.Dollars),
		},
		Comparison: string(c.Verdict),
	}
}

type RunSavingsView struct {
	TimeRange string  `json:"timeRange"`
	Span      int     `json:"span"`
	KWh       float64 `json:"kwh"`
	Dollars   float64 `json:"dollars"`
}

type UnitSummaryView struct {
	OnSlots       int     `json:"onSlots"`
	OffSlots      int     `json:"offSlots"`
	KWhConsumed   float64 `json:"kwhConsumed"`
	KWhSaved      float64 `json:"kwhSaved"`
	DollarsSaved  float64 `json:"dollarsSaved"`
	EfficiencyPct float64 `json:"efficiencyPercentage"`
}

type UnitRunsView struct {
	AHUID      int64                  `json:"ahuSystemId"`
	SystemName string                 `json:"systemName"`
	Runs       []models.CompressedRun `json:"runs"`
	Savings    []RunSavingsView       `json:"savings"`
	Summary    UnitSummaryView        `json:"summary"`
}

type RunsView struct {
	Building     string         `json:"buildingNumber"`
	Date         string         `json:"date"`
	Window       int            `json:"window"`
	Units        []UnitRunsView `json:"units"`
	KWhSaved     float64        `json:"totalKwhSaved"`
	DollarsSaved float64        `json:"totalDollarsSaved"`
}

func newRunsView(r campus.RunsReport) RunsView {
	v := RunsView{
		Building:     r.Building,
		Date:         r.Date,
		Window:       r.Window,
		Units:        make([]UnitRunsView, 0, len(r.Units)),
		KWhSaved:     money(r.KWhSaved),
		DollarsSaved: money(r.DollarsSaved),
	}
	for _, u := range r.Units {
		uv := UnitRunsView{
			AHUID:      u.AHUID,
			SystemName: u.Name,
			Runs:       u.Runs,
			Savings:    make([]RunSavingsView, 0, len(u.Estimates)),
			Summary: UnitSummaryView{
				OnSlots:       u.Summary.OnSlots,
				OffSlots:      u.Summary.OffSlots,
				KWhConsumed:   money(u.Summary.KWhConsumed),
				KWhSaved:      money(u.Summary.KWhSaved),
				DollarsSaved:  money(u.Summary.DollarsSaved),
				EfficiencyPct: money(u.Summary.EfficiencyPct),
			},
		}
		for _, e := range u.Estimates {
			uv.Savings = append(uv.Savings, RunSavingsView{
				TimeRange: e.Run.TimeRange,
				Span:      e.Run.Span,
				KWh:       money(e.KWh),
				Dollars:   money(e.Dollars),
			})
		}
		v.Units = append(v.Units, uv)
	}
	return v
}

type DateRangeView struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type CSVInfoView struct {
	FilePath     string        `json:"filePath"`
	ModifiedAt   string        `json:"modifiedAt,omitempty"`
	LoadedAt     string        `json:"loadedAt,omitempty"`
	FromFallback bool          `json:"fromFallback"`
	TotalRecords int           `json:"totalRecords"`
	DateRange    DateRangeView `json:"dateRange"`
	Buildings    []string      `json:"buildings"`
	AverageUsage float64       `json:"averageUsage"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func newCSVInfoView(info campus.CSVInfo) CSVInfoView {
	buildings := info.Summary.Buildings
	if buildings == nil {
		buildings = []string{}
	}
	return CSVInfoView{
		FilePath:     info.Path,
		ModifiedAt:   formatTime(info.ModifiedAt),
		LoadedAt:     formatTime(info.LoadedAt),
		FromFallback: info.FromFallback,
		TotalRecords: info.Summary.TotalRecords,
		DateRange: DateRangeView{
			Start: formatTime(info.Summary.Start),
			End:   formatTime(info.Summary.End),
		},
		Buildings:    buildings,
		AverageUsage: info.Summary.AvgUsage,
	}
}

type HealthView struct {
	Status    string `json:"status"`
	Revision  int64  `json:"revision"`
	CSVPath   string `json:"csvPath"`
	Optimizer bool   `json:"optimizer"`
	CheckedAt string `json:"checkedAt"`
}

package savings

import (
	"github.com/shopspring/decimal"

	"github.com/lox/campuswatt/internal/models"
)

// DefaultKWhPerSlot applies to any unit missing from the table.
const DefaultKWhPerSlot = 40

// FlatRate is the $/kWh used for all savings figures.
var FlatRate = decimal.RequireFromString("0.12")

// Table maps unit names to their half-hour consumption when running.
type Table struct {
	PerSlot map[string]decimal.Decimal
	Default decimal.Decimal
	Rate    decimal.Decimal
}

// DefaultTable holds the nameplate draw of the campus AHUs.
func DefaultTable() Table {
	return Table{
		PerSlot: map[string]decimal.Decimal{
			"AHU-1": decimal.NewFromInt(45),
			"AHU-2": decimal.NewFromInt(38),
			"AHU-3": decimal.NewFromInt(52),
			"AHU-4": decimal.NewFromInt(35),
			"AHU-5": decimal.NewFromInt(48),
		},
		Default: decimal.NewFromInt(DefaultKWhPerSlot),
		Rate:    FlatRate,
	}
}

// NewTable builds a table from plain numbers. Zero is a valid default or
// rate: unlisted units then save nothing, or savings carry no dollar value.
func NewTable(perSlot map[string]float64, def, rate float64) Table {
	t := Table{
		PerSlot: make(map[string]decimal.Decimal, len(perSlot)),
		Default: decimal.NewFromFloat(def),
		Rate:    decimal.NewFromFloat(rate),
	}
	for name, kwh := range perSlot {
		t.PerSlot[name] = decimal.NewFromFloat(kwh)
	}
	return t
}

func (t Table) PerSlotKWh(unitName string) decimal.Decimal {
	if v, ok := t.PerSlot[unitName]; ok {
		return v
	}
	return t.Default
}

type Estimate struct {
	AHUID    int64
	UnitName string
	Run      models.CompressedRun
	KWh      decimal.Decimal
	Dollars  decimal.Decimal
}

// EstimateRuns prices every OFF run of one unit. ON runs save nothing and are skipped.
func (t Table) EstimateRuns(unitName string, runs []models.CompressedRun) []Estimate {
	perSlot := t.PerSlotKWh(unitName)
	var out []Estimate
	for _, run := range runs {
		if run.ShouldBeOn {
			continue
		}
		kwh := perSlot.Mul(decimal.NewFromInt(int64(run.Span)))
		out = append(out, Estimate{
			AHUID:    run.AHUID,
			UnitName: unitName,
			Run:      run,
			KWh:      kwh,
			Dollars:  kwh.Mul(t.Rate),
		})
	}
	return out
}

// UnitSummary rolls a unit's runs up for the optimization bar charts.
type UnitSummary struct {
	AHUID         int64
	UnitName      string
	OnSlots       int
	OffSlots      int
	KWhConsumed   decimal.Decimal
	KWhSaved      decimal.Decimal
	DollarsSaved  decimal.Decimal
	EfficiencyPct decimal.Decimal
}

func (t Table) Summarize(unitName string, runs []models.CompressedRun) UnitSummary {
	s := UnitSummary{UnitName: unitName}
	for _, run := range runs {
		s.AHUID = run.AHUID
		if run.ShouldBeOn {
			s.OnSlots += run.Span
		} else {
			s.OffSlots += run.Span
		}
	}
	perSlot := t.PerSlotKWh(unitName)
	s.KWhConsumed = perSlot.Mul(decimal.NewFromInt(int64(s.OnSlots)))
	s.KWhSaved = perSlot.Mul(decimal.NewFromInt(int64(s.OffSlots)))
	s.DollarsSaved = s.KWhSaved.Mul(t.Rate)
	s.EfficiencyPct = decimal.Zero
	if total := s.OnSlots + s.OffSlots; total > 0 {
		s.EfficiencyPct = decimal.NewFromInt(int64(s.OffSlots)).
			Div(decimal.NewFromInt(int64(total))).
			Mul(decimal.NewFromInt(100)).
			Round(1)
	}
	return s
}

// Totals sums kWh and dollars over a set of estimates.
func Totals(estimates []Estimate) (kwh, dollars decimal.Decimal) {
	kwh, dollars = decimal.Zero, decimal.Zero
	for _, e := range estimates {
		kwh = kwh.Add(e.KWh)
		dollars = dollars.Add(e.Dollars)
	}
	return kwh, dollars
}

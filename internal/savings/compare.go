package savings

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/campuswatt/internal/models"
)

type Timeframe string

const (
	Day   Timeframe = "day"
	Week  Timeframe = "week"
	Month Timeframe = "month"
)

// ParseTimeframe accepts day, today, week and month. Empty means day.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "today":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Window is a half-open [Start, End) calendar period.
type Window struct {
	Start time.Time
	End   time.Time
	Label string
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CurrentWindow is the day, Sunday-start week, or calendar month containing ref.
func CurrentWindow(ref time.Time, tf Timeframe, loc *time.Location) Window {
	return windowFor(ref, tf, loc, 0)
}

// PriorYearWindow is the same calendar window one year before the one containing ref.
func PriorYearWindow(ref time.Time, tf Timeframe, loc *time.Location) Window {
	return windowFor(ref, tf, loc, -1)
}

func windowFor(ref time.Time, tf Timeframe, loc *time.Location, years int) Window {
	if loc == nil {
		loc = time.UTC
	}
	r := ref.In(loc)
	y, m, d := r.Date()

	switch tf {
	case Week:
		sunday := time.Date(y, m, d-int(r.Weekday()), 0, 0, 0, 0, loc)
		sy, sm, sd := sunday.Date()
		start := time.Date(sy+years, sm, sd, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 7)
		return Window{
			Start: start,
			End:   end,
			Label: start.Format(models.DateLayout) + " to " + end.AddDate(0, 0, -1).Format(models.DateLayout),
		}
	case Month:
		start := time.Date(y+years, m, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 1, 0), Label: start.Format("2006-01")}
	default:
		start := time.Date(y+years, m, d, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 0, 1), Label: start.Format(models.DateLayout)}
	}
}

// Latest returns the timestamp of the most recent reading.
func Latest(readings []models.EnergyReading) (time.Time, bool) {
	var latest time.Time
	for _, r := range readings {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return latest, len(readings) > 0
}

// Filter keeps readings falling in any of the windows, preserving order.
func Filter(readings []models.EnergyReading, windows ...Window) []models.EnergyReading {
	out := make([]models.EnergyReading, 0, len(readings))
	for _, r := range readings {
		for _, w := range windows {
			if w.Contains(r.Timestamp) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

type Verdict string

const (
	Better Verdict = "better"
	Worse  Verdict = "worse"
	Same   Verdict = "same"
)

type Period struct {
	Usage decimal.Decimal
	Label string
	Count int
}

type Comparison struct {
	Timeframe    Timeframe
	Current      Period
	PreviousYear Period
	AbsoluteKWh  decimal.Decimal
	Percent      decimal.Decimal
	Dollars      decimal.Decimal
	Verdict      Verdict
}

func emptyComparison(tf Timeframe) Comparison {
	return Comparison{
		Timeframe:    tf,
		Current:      Period{Usage: decimal.Zero},
		PreviousYear: Period{Usage: decimal.Zero},
		AbsoluteKWh:  decimal.Zero,
		Percent:      decimal.Zero,
		Dollars:      decimal.Zero,
		Verdict:      Same,
	}
}

// Compare sums the period containing the latest reading against the same
// calendar period a year earlier. Positive AbsoluteKWh means less energy was
// used this year. With no readings it returns an all-zero comparison.
func Compare(readings []models.EnergyReading, tf Timeframe, rate decimal.Decimal, loc *time.Location) Comparison {
	ref, ok := Latest(readings)
	if !ok {
		return emptyComparison(tf)
	}

	cur := CurrentWindow(ref, tf, loc)
	prev := PriorYearWindow(ref, tf, loc)

	c := emptyComparison(tf)
	c.Current.Label = cur.Label
	c.PreviousYear.Label = prev.Label

	for _, r := range readings {
		kwh := decimal.NewFromFloat(r.KWh)
		switch {
		case cur.Contains(r.Timestamp):
			c.Current.Usage = c.Current.Usage.Add(kwh)
			c.Current.Count++
		case prev.Contains(r.Timestamp):
			c.PreviousYear.Usage = c.PreviousYear.Usage.Add(kwh)
			c.PreviousYear.Count++
		}
	}

	c.AbsoluteKWh = c.PreviousYear.Usage.Sub(c.Current.Usage)
	if !c.PreviousYear.Usage.IsZero() {
		c.Percent = c.AbsoluteKWh.Div(c.PreviousYear.Usage).Mul(decimal.NewFromInt(100))
	}
	c.Dollars = c.AbsoluteKWh.Mul(rate)

	switch c.AbsoluteKWh.Sign() {
	case 1:
		c.Verdict = Better
	case -1:
		c.Verdict = Worse
	default:
		c.Verdict = Same
	}
	return c
}

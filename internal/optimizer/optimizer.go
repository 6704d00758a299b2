// Package optimizer runs the external AHU optimization generator and decodes
// its JSON report.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

var (
	ErrNotConfigured = errors.New("optimizer: no command configured")
	ErrTimeout       = errors.New("optimizer: timed out")
	ErrInvalidDate   = errors.New("optimizer: date must be YYYY-MM-DD")
	ErrCSVNotFound   = errors.New("optimizer: csv file not found")
)

var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type HourlySlot struct {
	Hour   string `json:"hour"`
	Active bool   `json:"active"`
	Reason string `json:"reason"`
}

type UnitReport struct {
	AHUUnit              string       `json:"ahu_unit"`
	OnHours              float64      `json:"on_hours"`
	OffHours             float64      `json:"off_hours"`
	EnergyConsumedKWh    float64      `json:"energy_consumed_kwh"`
	EnergySavedKWh       float64      `json:"energy_saved_kwh"`
	CostSavedUSD         float64      `json:"cost_saved_usd"`
	EfficiencyPercentage float64      `json:"efficiency_percentage"`
	ClassesServed        int          `json:"classes_served"`
	HourlySchedule       []HourlySlot `json:"hourly_schedule"`
}

type Summary struct {
	TotalAHUUnits               int     `json:"total_ahu_units"`
	TotalEnergySavedKWh         float64 `json:"total_energy_saved_kwh"`
	TotalCostSavedUSD           float64 `json:"total_cost_saved_usd"`
	AverageEfficiencyPercentage float64 `json:"average_efficiency_percentage"`
	TotalClassesProcessed       int     `json:"total_classes_processed"`
}

type Result struct {
	Success bool         `json:"success"`
	Date    string       `json:"date,omitempty"`
	Units   []UnitReport `json:"ahu_optimization_data,omitempty"`
	Summary *Summary     `json:"summary,omitempty"`
	CSVFile string       `json:"csv_file,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Runner invokes Command with --csv-path, --date and --output-format json
// appended, e.g. Command = ["python3", "ahu_optimization_generator.py"].
type Runner struct {
	Command    []string
	DefaultCSV string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Run validates the request, executes the generator and decodes stdout.
// Expiry of the timeout returns ErrTimeout; a non-zero exit returns an error
// carrying the generator's own message when it printed one.
func (r *Runner) Run(ctx context.Context, date, csvPath string) (*Result, error) {
	if !dateRE.MatchString(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if len(r.Command) == 0 {
		return nil, ErrNotConfigured
	}
	if csvPath == "" {
		csvPath = r.DefaultCSV
	}
	if csvPath == "" {
		return nil, fmt.Errorf("%w: no path given", ErrCSVNotFound)
	}
	if _, err := os.Stat(csvPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCSVNotFound, csvPath)
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), r.Command[1:]...),
		"--csv-path", csvPath,
		"--date", date,
		"--output-format", "json",
	)
	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	logger.Info("running optimizer", zap.String("date", date), zap.String("csv", csvPath))
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.OptimizerRuns.WithLabelValues("timeout").Inc()
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		msg := strings.TrimSpace(stderr.String())
		if e := gjson.Get(msg, "error"); e.Exists() {
			msg = e.String()
		}
		return nil, fmt.Errorf("optimizer: %w: %s", err, msg)
	}

	out := stdout.Bytes()
	if !gjson.ValidBytes(out) {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("optimizer: output is not valid JSON")
	}
	var res Result
	if err := json.Unmarshal(out, &res); err != nil {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("optimizer: decode output: %w", err)
	}
	if !res.Success {
		metrics.OptimizerRuns.WithLabelValues("failed").Inc()
		if res.Error == "" {
			res.Error = "optimizer reported failure"
		}
		return nil, errors.New("optimizer: " + res.Error)
	}

	metrics.OptimizerRuns.WithLabelValues("ok").Inc()
	logger.Info("optimizer finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("units", len(res.Units)))
	return &res, nil
}

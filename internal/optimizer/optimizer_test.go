package optimizer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGenerator(t *testing.T, body string) []string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "generator.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return []string{"/bin/sh", path}
}

func scheduleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,date,time\n"), 0o644))
	return path
}

const okReport = `{"success":true,"date":"2025-08-01","ahu_optimization_data":[{"ahu_unit":"AHU-1","on_hours":3,"off_hours":12,"energy_consumed_kwh":135,"energy_saved_kwh":540,"cost_saved_usd":64.8,"efficiency_percentage":80,"classes_served":1,"hourly_schedule":[{"hour":"09:00","active":true,"reason":"class"}]}],"summary":{"total_ahu_units":1,"total_energy_saved_kwh":540,"total_cost_saved_usd":64.8,"average_efficiency_percentage":80,"total_classes_processed":1}}`

func TestRun_Success(t *testing.T) {
	r := &Runner{Command: fakeGenerator(t, `echo '`+okReport+`'`)}
	res, err := r.Run(context.Background(), "2025-08-01", scheduleCSV(t))
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "AHU-1", res.Units[0].AHUUnit)
	assert.Equal(t, 64.8, res.Units[0].CostSavedUSD)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 1, res.Summary.TotalAHUUnits)
}

func TestRun_PassesArguments(t *testing.T) {
	r := &Runner{Command: fakeGenerator(t, `printf '{"success":true,"csv_file":"%s","date":"%s"}' "$2" "$4"`)}
	csv := scheduleCSV(t)
	res, err := r.Run(context.Background(), "2025-08-01", csv)
	require.NoError(t, err)
	assert.Equal(t, csv, res.CSVFile)
	assert.Equal(t, "2025-08-01", res.Date)
}

func TestRun_DefaultCSV(t *testing.T) {
	csv := scheduleCSV(t)
	r := &Runner{Command: fakeGenerator(t, `printf '{"success":true,"csv_file":"%s"}' "$2"`), DefaultCSV: csv}
	res, err := r.Run(context.Background(), "2025-08-01", "")
	require.NoError(t, err)
	assert.Equal(t, csv, res.CSVFile)
}

func TestRun_Timeout(t *testing.T) {
	r := &Runner{Command: fakeGenerator(t, "exec sleep 5"), Timeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := r.Run(context.Background(), "2025-08-01", scheduleCSV(t))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"non-zero exit with json error", `echo '{"success":false,"error":"no classes found"}' >&2; exit 1`, "no classes found"},
		{"non-zero exit with text", `echo 'Traceback' >&2; exit 2`, "Traceback"},
		{"not json", `echo 'hello'`, "not valid JSON"},
		{"reported failure", `echo '{"success":false,"error":"bad csv"}'`, "bad csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{Command: fakeGenerator(t, tt.body)}
			_, err := r.Run(context.Background(), "2025-08-01", scheduleCSV(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Validation(t *testing.T) {
	r := &Runner{Command: []string{"/bin/false"}}

	_, err := r.Run(context.Background(), "2025-8-1", "x.csv")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = r.Run(context.Background(), "2025-08-01", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrCSVNotFound)

	_, err = r.Run(context.Background(), "2025-08-01", "")
	assert.ErrorIs(t, err, ErrCSVNotFound)

	_, err = (&Runner{}).Run(context.Background(), "2025-08-01", "x.csv")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

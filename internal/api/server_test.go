package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/campuswatt/internal/api"
	"github.com/lox/campuswatt/internal/campus"
	"github.com/lox/campuswatt/internal/config"
	"github.com/lox/campuswatt/internal/energy"
	"github.com/lox/campuswatt/internal/ingest"
	"github.com/lox/campuswatt/internal/narrative"
	"github.com/lox/campuswatt/internal/optimizer"
	"github.com/lox/campuswatt/internal/schedcache"
	"github.com/lox/campuswatt/internal/store"

	_ "modernc.org/sqlite"
)

func newTestServer(t *testing.T, opts ...api.Option) *api.Server {
	t.Helper()
	st, db, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	site := config.Default()
	require.NoError(t, ingest.Seed(context.Background(), st, ingest.SeedData{
		Units:     site.Units,
		Classes:   site.Classes,
		RateTiers: site.RateTiers,
	}, nil))

	en, err := energy.NewCache(filepath.Join(t.TempDir(), "missing.csv"), energy.WithRetryWindow(0))
	require.NoError(t, err)

	c := campus.New(st, en, schedcache.NewMemory(time.Minute), campus.Config{
		DefaultBuilding: site.DefaultBuilding,
		Window:          site.Schedule.Window,
		Policy:          site.Policy(),
		Table:           site.SavingsTable(),
		Location:        time.UTC,
	}, nil)
	return api.NewServer(c, "0", opts...)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func do(t *testing.T, srv *api.Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	require.NoError(t, err, "timestamp is RFC3339")
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var h api.HealthView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Positive(t, h.Revision, "seeding bumps the revision")
	assert.False(t, h.Optimizer)
}

func TestRequestIDAndCORS(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/data/rates", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/data/rates", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/data/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Contains(t, w.Body.String(), `"data":null`, "error envelopes still carry data")
}

func TestAHUSystems(t *testing.T) {
	srv := newTestServer(t)

	var units []struct {
		ID         int64    `json:"id"`
		SystemName string   `json:"systemName"`
		Building   string   `json:"buildingNumber"`
		Zones      []string `json:"zones"`
	}
	w := do(t, srv, http.MethodGet, "/api/data/ahu-systems?building=14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &units)
	require.Len(t, units, 3)
	assert.Equal(t, "AHU-1", units[0].SystemName)
	assert.Equal(t, []string{"201-210"}, units[0].Zones)

	w = do(t, srv, http.MethodGet, "/api/data/ahu-systems", nil)
	decode(t, w, &units)
	assert.Len(t, units, 5, "no building lists every unit")
}

func TestAHUSchedule(t *testing.T) {
	srv := newTestServer(t)

	var entries []struct {
		SystemName     string `json:"systemName"`
		TimeSlot       string `json:"timeSlot"`
		ShouldBeOn     bool   `json:"shouldBeOn"`
		HasActiveClass bool   `json:"hasActiveClass"`
		Date           string `json:"date"`
	}
	w := do(t, srv, http.MethodGet, "/api/data/ahu-schedule?building=14&system=AHU-1&date=2025-08-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &entries)
	require.Len(t, entries, 31)

	on := map[string]bool{}
	for _, e := range entries {
		assert.Equal(t, "AHU-1", e.SystemName)
		assert.Equal(t, e.HasActiveClass, e.ShouldBeOn)
		on[e.TimeSlot] = e.ShouldBeOn
	}
	assert.False(t, on["08:30"])
	assert.True(t, on["09:00"])
	assert.True(t, on["10:00"])
	assert.False(t, on["10:30"])
}

func TestAHUSchedule_InvalidDate(t *testing.T) {
	srv := newTestServer(t)
	for _, target := range []string{
		"/api/data/ahu-schedule?date=08/01/2025",
		"/api/data/ahu-runs?date=yesterday",
		"/api/data/class-schedules?date=2025-13-40",
	} {
		t.Run(target, func(t *testing.T) {
			w := do(t, srv, http.MethodGet, target, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w, nil)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestAHURuns(t *testing.T) {
	srv := newTestServer(t)

	var runs api.RunsView
	w := do(t, srv, http.MethodGet, "/api/data/ahu-runs?building=14&date=2025-08-01&window=12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &runs)

	assert.Equal(t, 12, runs.Window)
	require.Len(t, runs.Units, 3)
	ahu1 := runs.Units[0]
	assert.Equal(t, "AHU-1", ahu1.SystemName)
	var ranges []string
	for _, r := range ahu1.Runs {
		ranges = append(ranges, r.TimeRange)
	}
	assert.Equal(t, []string{"07:00 - 08:30", "09:00 - 10:00", "10:30 - 12:30"}, ranges)
	assert.Equal(t, 405.0, runs.KWhSaved)
	assert.Equal(t, 48.6, runs.DollarsSaved)

	w = do(t, srv, http.MethodGet, "/api/data/ahu-runs", nil)
	decode(t, w, &runs)
	assert.Equal(t, 31, runs.Window, "configured default window")
}

func TestAHURuns_BadWindow(t *testing.T) {
	srv := newTestServer(t)
	for _, window := range []string{"abc", "-1", "40"} {
		w := do(t, srv, http.MethodGet, "/api/data/ahu-runs?window="+window, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, window)
	}
}

func TestAHUScheduleImage(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/api/data/ahu-schedule.png?building=14&window=12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())

	again := do(t, srv, http.MethodGet, "/api/data/ahu-schedule.png?building=14&window=12", nil)
	assert.Equal(t, w.Body.Bytes(), again.Body.Bytes())
}

func TestEnergyUsage(t *testing.T) {
	srv := newTestServer(t)

	var readings []struct {
		Building string  `json:"buildingNumber"`
		KWh      float64 `json:"energyUsedKwh"`
	}
	w := do(t, srv, http.MethodGet, "/api/data/energy-usage?building=14&timeframe=today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w, &readings)
	assert.Len(t, readings, 192)
	assert.Contains(t, env.Message, "sample data")

	w = do(t, srv, http.MethodGet, "/api/data/energy-usage?timeframe=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavings(t *testing.T) {
	srv := newTestServer(t)

	var cmp api.ComparisonView
	w := do(t, srv, http.MethodGet, "/api/data/savings?building=26&timeframe=day", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cmp)

	assert.Equal(t, "better", cmp.Comparison)
	assert.Equal(t, "2025-08-01", cmp.CurrentPeriod.Period)
	assert.Equal(t, 96, cmp.CurrentPeriod.DataPoints)
	assert.Equal(t, 96, cmp.PreviousYear.DataPoints)
	assert.Positive(t, cmp.Savings.Absolute)
	assert.InDelta(t, cmp.Savings.Absolute*0.12, cmp.Savings.Cost, 0.01)

	w = do(t, srv, http.MethodGet, "/api/data/savings?timeframe=year", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeNarrator struct{ facts narrative.Facts }

func (f *fakeNarrator) Summarize(_ context.Context, facts narrative.Facts) narrative.Narrative {
	f.facts = facts
	return narrative.Narrative{Text: "fine", Source: "fake"}
}

func TestSavingsNarrative(t *testing.T) {
	t.Run("template without narrator", func(t *testing.T) {
		srv := newTestServer(t)
		var n narrative.Narrative
		w := do(t, srv, http.MethodGet, "/api/data/savings/narrative?building=14", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &n)
		assert.Equal(t, narrative.SourceTemplate, n.Source)
		assert.NotEmpty(t, n.Text)
	})

	t.Run("narrator gets the facts", func(t *testing.T) {
		fake := &fakeNarrator{}
		srv := newTestServer(t, api.WithNarrator(fake))
		var n narrative.Narrative
		w := do(t, srv, http.MethodGet, "/api/data/savings/narrative?building=14&timeframe=day", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &n)
		assert.Equal(t, "fake", n.Source)
		assert.Equal(t, "14", fake.facts.Building)
		assert.Equal(t, "2025-08-01", fake.facts.Date)
		assert.True(t, fake.facts.ScheduleKWh.IsPositive())
	})
}

func TestCSVPath(t *testing.T) {
	srv := newTestServer(t)

	path := filepath.Join(t.TempDir(), "meter.csv")
	csv := "Timestamp, Total Electric Usage (C)\n" +
		"2025-08-01 00:00:00,35.1\n" +
		"2025-08-01 00:15:00,36.9\n" +
		"bad,1\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	var info api.CSVInfoView
	body, _ := json.Marshal(map[string]string{"filePath": path})
	w := do(t, srv, http.MethodPost, "/api/data/csv-path", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &info)
	assert.Equal(t, path, info.FilePath)
	assert.False(t, info.FromFallback)
	assert.Equal(t, 2, info.TotalRecords)
	assert.Equal(t, []string{"14"}, info.Buildings)
	assert.InDelta(t, 36.0, info.AverageUsage, 0.001)

	w = do(t, srv, http.MethodGet, "/api/data/csv-info", nil)
	decode(t, w, &info)
	assert.Equal(t, path, info.FilePath)
	assert.Equal(t, "2025-08-01T00:00:00Z", info.DateRange.Start)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"empty path", `{"filePath": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/data/csv-path", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w = do(t, srv, http.MethodGet, "/api/data/csv-path", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReferenceData(t *testing.T) {
	srv := newTestServer(t)

	var classes []struct {
		ClassName string `json:"className"`
	}
	w := do(t, srv, http.MethodGet, "/api/data/class-schedules?building=14&date=2025-08-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &classes)
	assert.Len(t, classes, 2)

	var tiers []struct {
		Tier string `json:"rateTier"`
	}
	w = do(t, srv, http.MethodGet, "/api/data/rates", nil)
	decode(t, w, &tiers)
	assert.Len(t, tiers, 5)

	var summary campus.DataSummary
	w = do(t, srv, http.MethodGet, "/api/data/summary", nil)
	decode(t, w, &summary)
	assert.Equal(t, 5, summary.ClassSchedules.Count)
	assert.Equal(t, 576, summary.EnergyUsage.Count)
	assert.Equal(t, 0.32, summary.Rates.PriceRange.Max)
}

type fakeOptimizer struct {
	res *optimizer.Result
	err error
	got [2]string
}

func (f *fakeOptimizer) Run(_ context.Context, date, csvPath string) (*optimizer.Result, error) {
	f.got = [2]string{date, csvPath}
	return f.res, f.err
}

func TestOptimization(t *testing.T) {
	result := &optimizer.Result{
		Success: true,
		Date:    "2025-08-01",
		Units:   []optimizer.UnitReport{{AHUUnit: "AHU-1", OnHours: 4}},
		Summary: &optimizer.Summary{TotalAHUUnits: 1, TotalEnergySavedKWh: 120},
		CSVFile: "/data/meter.csv",
	}

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t)
		w := do(t, srv, http.MethodGet, "/api/ahu-optimization/2025-08-01", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		fake := &fakeOptimizer{res: result}
		srv := newTestServer(t, api.WithOptimizer(fake))
		w := do(t, srv, http.MethodGet, "/api/ahu-optimization/2025-08-01?csvPath=/tmp/x.csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, [2]string{"2025-08-01", "/tmp/x.csv"}, fake.got)

		var got optimizer.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.True(t, got.Success)
		require.Len(t, got.Units, 1)
		assert.Equal(t, "AHU-1", got.Units[0].AHUUnit)
	})

	t.Run("summary drops unit detail", func(t *testing.T) {
		srv := newTestServer(t, api.WithOptimizer(&fakeOptimizer{res: result}))
		w := do(t, srv, http.MethodGet, "/api/ahu-optimization/summary/2025-08-01", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "ahu_optimization_data")
		assert.Contains(t, w.Body.String(), `"total_energy_saved_kwh":120`)
	})

	errs := []struct {
		err    error
		status int
	}{
		{optimizer.ErrInvalidDate, http.StatusBadRequest},
		{optimizer.ErrCSVNotFound, http.StatusBadRequest},
		{optimizer.ErrTimeout, http.StatusGatewayTimeout},
		{optimizer.ErrNotConfigured, http.StatusServiceUnavailable},
		{os.ErrPermission, http.StatusInternalServerError},
	}
	for _, tt := range errs {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := newTestServer(t, api.WithOptimizer(&fakeOptimizer{err: tt.err}))
			w := do(t, srv, http.MethodGet, "/api/ahu-optimization/2025-08-01", nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/data/rates", nil)

	w := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `campuswatt_http_requests_total{method="GET",route="/api/data/rates",status="200"}`))
}

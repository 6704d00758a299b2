package api

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/render"
)

func (s *Server) handleAHUScheduleImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q.Get("window"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.campus.Runs(r.Context(), q.Get("building"), q.Get("system"), q.Get("date"), window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rev, err := s.campus.Revision(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := fmt.Sprintf("%s|%s|%s|%d|r%d", report.Building, report.Date, q.Get("system"), report.Window, rev)
	data, ok := s.charts.Get(key)
	if !ok {
		chart := render.Chart{
			Title:  fmt.Sprintf("Building %s AHU schedule %s", report.Building, report.Date),
			Window: report.Window,
		}
		for _, u := range report.Units {
			chart.Units = append(chart.Units, render.Row{Name: u.Name, Runs: u.Runs})
		}
		data, err = render.RunChart(chart)
		if err != nil {
			s.logger.Error("render chart", zap.String("key", key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render chart")
			return
		}
		s.charts.Set(key, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write(data)
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/schedule"
)

func (s *Server) handleAHUSystems(w http.ResponseWriter, r *http.Request) {
	units, err := s.campus.Units(r.Context(), r.URL.Query().Get("building"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, units, "")
}

func (s *Server) handleAHUSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.campus.Schedule(r.Context(), q.Get("building"), q.Get("system"), q.Get("date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, entries, "")
}

func (s *Server) handleAHURuns(w http.ResponseWriter, r *http.Request) {
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
	writeData(w, newRunsView(report), "")
}

func (s *Server) handleClassSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	classes, err := s.campus.Classes(r.Context(), q.Get("building"), q.Get("date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, classes, "")
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	tiers, err := s.campus.RateTiers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, tiers, "")
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.campus.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, summary, "")
}

func (s *Server) handleCSVInfo(w http.ResponseWriter, r *http.Request) {
	info := s.campus.CSVInfo(r.Context())
	writeData(w, newCSVInfoView(info), fallbackMessage(info.FromFallback))
}

type csvPathRequest struct {
	FilePath string `json:"filePath"`
}

func (s *Server) handleSetCSVPath(w http.ResponseWriter, r *http.Request) {
	var req csvPathRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.FilePath = strings.TrimSpace(req.FilePath)
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "filePath is required")
		return
	}

	info, err := s.campus.SetCSVPath(r.Context(), req.FilePath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("csv path updated",
		zap.String("path", info.Path),
		zap.Bool("fallback", info.FromFallback),
		zap.String("request_id", requestIDFrom(r.Context())))
	writeData(w, newCSVInfoView(info), fallbackMessage(info.FromFallback))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := HealthView{
		Status:    "ok",
		CSVPath:   s.campus.CSVPath(),
		Optimizer: s.optimizer != nil,
		CheckedAt: s.now().UTC().Format(time.RFC3339),
	}
	rev, err := s.campus.Revision(r.Context())
	if err != nil {
		h.Status = "error"
		writeJSON(w, http.StatusServiceUnavailable, h)
		return
	}
	h.Revision = rev
	writeJSON(w, http.StatusOK, h)
}

// fail logs unexpected errors and writes the mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func parseWindow(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > schedule.SlotCount {
		return 0, fmt.Errorf("window must be between 1 and %d", schedule.SlotCount)
	}
	return n, nil
}

func fallbackMessage(fromFallback bool) string {
	if fromFallback {
		return "energy CSV unavailable, serving built-in sample data"
	}
	return ""
}

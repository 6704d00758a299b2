package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/optimizer"
)

// The optimizer endpoints answer with the optimizer's own JSON rather than
// the data envelope.
func (s *Server) runOptimizer(w http.ResponseWriter, r *http.Request) (*optimizer.Result, bool) {
	date := mux.Vars(r)["date"]
	if s.optimizer == nil {
		writeJSON(w, http.StatusServiceUnavailable, optimizer.Result{Error: optimizer.ErrNotConfigured.Error()})
		return nil, false
	}
	res, err := s.optimizer.Run(r.Context(), date, r.URL.Query().Get("csvPath"))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("optimizer failed",
				zap.String("date", date),
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.Error(err))
		}
		writeJSON(w, status, optimizer.Result{Date: date, Error: err.Error()})
		return nil, false
	}
	return res, true
}

func (s *Server) handleOptimization(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runOptimizer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOptimizationSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := s.runOptimizer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, optimizer.Result{
		Success: true,
		Date:    res.Date,
		Summary: res.Summary,
		CSVFile: res.CSVFile,
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/lox/campuswatt/internal/narrative"
	"github.com/lox/campuswatt/internal/savings"
)

func (s *Server) handleEnergyUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tf, err := savings.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reload, _ := strconv.ParseBool(q.Get("reload"))

	usage := s.campus.EnergyUsage(r.Context(), q.Get("building"), tf, reload)
	writeData(w, usage.Readings, fallbackMessage(usage.FromFallback))
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tf, err := savings.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := s.campus.Savings(r.Context(), q.Get("building"), tf)
	writeData(w, newComparisonView(c), "")
}

func (s *Server) handleSavingsNarrative(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tf, err := savings.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	building := s.campus.Building(q.Get("building"))
	report, err := s.campus.Runs(r.Context(), building, "", q.Get("date"), 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	facts := narrative.Facts{
		Building:        building,
		Comparison:      s.campus.Savings(r.Context(), building, tf),
		ScheduleKWh:     report.KWhSaved,
		ScheduleDollars: report.DollarsSaved,
		Date:            report.Date,
	}
	if s.narrator == nil {
		writeData(w, narrative.Narrative{Text: narrative.Template(facts), Source: narrative.SourceTemplate}, "")
		return
	}
	writeData(w, s.narrator.Summarize(r.Context(), facts), "")
}

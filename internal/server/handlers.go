package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type indicatorResponse struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Dataset  string `json:"dataset"`
	Detailed bool   `json:"detailed"`
	Default  bool   `json:"default"`
}

func (s *Server) handleIndicators(w http.ResponseWriter, _ *http.Request) {
	defaults := make(map[string]bool, len(census.DefaultSelection))
	for _, name := range census.DefaultSelection {
		defaults[name] = true
	}

	catalog := census.Catalog()
	out := make([]indicatorResponse, 0, len(catalog))
	for _, ind := range catalog {
		out = append(out, indicatorResponse{
			Name:     ind.Name,
			Code:     ind.Code,
			Dataset:  ind.Dataset,
			Detailed: ind.Detailed(),
			Default:  defaults[ind.Name],
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type variableResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (s *Server) handleGroupVariables(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	labels, order, err := s.runner.Client.Labels(r.Context(), group)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]variableResponse, 0, len(order))
	for _, code := range order {
		out = append(out, variableResponse{Code: code, Label: labels[code]})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// pullOptions decodes the query string shared by /api/pull and /api/pull.csv.
// Indicator names may repeat or be comma-separated.
func pullOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()

	level := census.LevelCounty
	if v := q.Get("level"); v != "" {
		var err error
		if level, err = census.ParseLevel(v); err != nil {
			return pipeline.Options{}, err
		}
	}

	var indicators []string
	for _, v := range q["indicator"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				indicators = append(indicators, name)
			}
		}
	}

	return pipeline.Options{
		Level:      level,
		ZCTAs:      q.Get("zctas"),
		Indicators: indicators,
		Age:        q.Get("age") == "true",
		Sex:        q.Get("sex") == "true",
		Race:       q.Get("race") == "true",
		Refresh:    q.Get("refresh") == "true",
	}, nil
}

type pullResponse struct {
	RunID   string         `json:"run_id"`
	Columns []string       `json:"columns"`
	Rows    [][]string     `json:"rows"`
	URLs    []string       `json:"urls"`
	Stats   pipeline.Stats `json:"stats"`
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	opts, err := pullOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pullResponse{
		RunID:   res.RunID,
		Columns: res.Table.Columns,
		Rows:    res.Table.Rows,
		URLs:    res.URLs,
		Stats:   res.Stats,
	})
}

func (s *Server) handlePullCSV(w http.ResponseWriter, r *http.Request) {
	opts, err := pullOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := res.Table.CSVBytes()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="acs_data.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("writing csv response", "error", err)
	}
}

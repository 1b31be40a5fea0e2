package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"shopeasy/models"
	"shopeasy/services"
	"shopeasy/utils"
)

const maxBodyBytes = 1 << 20

// Server holds the handlers' dependencies.
type Server struct {
	search *services.SearchService
	logger *utils.Logger
}

// searchBody accepts the SearchRequest fields plus the short "q" and "max" aliases.
type searchBody struct {
	services.SearchRequest
	Q   string `json:"q"`
	Max int    `json:"max"`
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ShopEasy"})
}

func (s *Server) sources(w http.ResponseWriter, _ *http.Request) {
	type source struct {
		Name    string `json:"name"`
		BaseURL string `json:"base_url"`
	}
	out := []source{}
	for _, src := range s.search.Sources() {
		out = append(out, source{Name: src.Name(), BaseURL: src.BaseURL()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (s *Server) searchGET(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := services.SearchRequest{
		Query:        q.Get("q"),
		Limit:        queryInt(q.Get("max"), q.Get("limit")),
		MinPrice:     queryFloat(q.Get("min_price")),
		MaxPrice:     queryFloat(q.Get("max_price")),
		Threshold:    queryFloat(q.Get("threshold")),
		Email:        q.Get("email"),
		NotifyReport: queryBool(q.Get("send_report")),
		Demo:         queryBool(q.Get("demo")),
	}
	s.run(w, r, req)
}

func (s *Server) searchPOST(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body searchBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req := body.SearchRequest
	if strings.TrimSpace(req.Query) == "" {
		req.Query = body.Q
	}
	if req.Limit == 0 {
		req.Limit = body.Max
	}
	s.run(w, r, req)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, req services.SearchRequest) {
	resp, err := s.search.Search(r.Context(), req)
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Missing search query")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "search cancelled")
	case err != nil:
		s.logger.Error("[api] Search failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeJSON encodes v before touching the response, so an encode failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt returns the first parseable value; 0 means unset.
func queryInt(values ...string) int {
	for _, v := range values {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func queryFloat(v string) models.OptFloat {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return models.OptFloat{}
	}
	return models.Float(f)
}

func queryBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Package api serves the search pipeline over HTTP.
package api

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"shopeasy/metrics"
	"shopeasy/services"
	"shopeasy/utils"
)

// NewRouter wires the API routes.
func NewRouter(search *services.SearchService, rec *metrics.Recorder, logger *utils.Logger) *mux.Router {
	s := &Server{search: search, logger: logger}
	r := mux.NewRouter()

	r.Handle("/api/search", rec.WrapHandler("/api/search", http.HandlerFunc(s.searchGET))).Methods(http.MethodGet)
	r.Handle("/api/search", rec.WrapHandler("/api/search", http.HandlerFunc(s.searchPOST))).Methods(http.MethodPost)
	r.Handle("/api/sources", rec.WrapHandler("/api/sources", http.HandlerFunc(s.sources))).Methods(http.MethodGet)
	r.HandleFunc("/api/health", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", rec.Handler()).Methods(http.MethodGet)

	return r
}

// NewHandler wraps the router with access logging and permissive CORS.
func NewHandler(search *services.SearchService, rec *metrics.Recorder, logger *utils.Logger, accessLog io.Writer) http.Handler {
	router := NewRouter(search, rec, logger)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(accessLog, cors(router))
}

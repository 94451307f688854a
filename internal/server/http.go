package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/domain"
	"aoe-stats/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer serves the refresh trigger, the played-together query and the
// published documents.
type HTTPServer struct {
	refreshSvc *service.RefreshService
	matchSvc   *service.MatchService
	statsSvc   *service.StatsService
}

func NewHTTPServer(refreshSvc *service.RefreshService, matchSvc *service.MatchService, statsSvc *service.StatsService) *HTTPServer {
	return &HTTPServer{refreshSvc: refreshSvc, matchSvc: matchSvc, statsSvc: statsSvc}
}

func (s *HTTPServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /refresh", s.Refresh)
	mux.HandleFunc("GET /matches", s.PlayedTogether)
	mux.HandleFunc("GET /api/player-stats.json", s.PlayerStats)
	mux.HandleFunc("GET /api/matches.json", s.Matches)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Refresh runs a full cycle. Per-player degradation still reports success;
// only a failure to persist is an error.
func (s *HTTPServer) Refresh(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	report, err := s.refreshSvc.Refresh(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("refresh failed")
		http.Error(w, "Stats update failed", http.StatusInternalServerError)
		return
	}

	log.Info().Str("cycle_id", report.CycleID).Bool("shared", report.Shared).Msg("refresh finished")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Stats updated"))
}

// PlayedTogether accepts players=A,B or repeated players parameters.
func (s *HTTPServer) PlayedTogether(w http.ResponseWriter, r *http.Request) {
	names := splitNames(r.URL.Query()["players"])

	matches, err := s.matchSvc.PlayedTogether(r.Context(), names)
	switch {
	case errors.Is(err, service.ErrUnknownPlayer), errors.Is(err, service.ErrNoPlayers):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("played together query failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, matches)
}

func (s *HTTPServer) PlayerStats(w http.ResponseWriter, r *http.Request) {
	doc, err := s.statsSvc.Published(r.Context())
	writeDocument(w, r, doc, err)
}

func (s *HTTPServer) Matches(w http.ResponseWriter, r *http.Request) {
	doc, err := s.matchSvc.Document(r.Context())
	writeDocument(w, r, doc, err)
}

func splitNames(values []string) []string {
	var names []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func writeJSON(w http.ResponseWriter, matches []domain.Match) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(matches); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeDocument(w http.ResponseWriter, r *http.Request, doc *blob.Document, err error) {
	if blob.IsNotFound(err) {
		http.Error(w, "not published yet", http.StatusNotFound)
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to read document")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if doc.CacheControl != "" {
		w.Header().Set("Cache-Control", doc.CacheControl)
	}
	if doc.ContentType != "" {
		w.Header().Set("Content-Type", doc.ContentType)
	}
	if !doc.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", doc.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.Write(doc.Body)
}


package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/S1M0N38/cr-db/internal/domain"
	"github.com/S1M0N38/cr-db/internal/middleware"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	StatusPath = "/status"
	HealthPath = "/healthz"
)

type StatsReader interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// StatusServer exposes read-only crawl progress.
type StatusServer struct {
	stats  StatsReader
	logger zerolog.Logger
}

func NewStatusServer(stats StatsReader, logger zerolog.Logger) *StatusServer {
	return &StatusServer{stats: stats, logger: logger}
}

func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+StatusPath, s.handleStatus)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	return middleware.RequestLogger(s.logger)(c.Handler(mux))
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.Snapshot(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to read snapshot")
		http.Error(w, "failed to read snapshot, request "+middleware.GetRequestID(r.Context()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write snapshot")
	}
}

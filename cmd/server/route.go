package main

import (
	"encoding/json"
	"net/http"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
)

const URI_WS = "/play"
const URI_STATS = "/stats"

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_WS, s.GameServer.HandleHttpCall())
	s.router.HandleFunc("GET", URI_STATS, s.handleStats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.GameServer.Arena.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Warnf("stats: %v", err)
	}
}

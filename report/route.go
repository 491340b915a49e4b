package report

import (
	"github.com/matryer/way"
)

const (
	URI_GAMES = "/games"
	URI_GAME  = "/games/:id"
	URI_WORLD = "/world"
)

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URI_GAMES, s.handleGames)
	s.router.HandleFunc("GET", URI_GAME, s.handleGame)
	s.router.HandleFunc("GET", URI_WORLD, s.handleWorld)
}

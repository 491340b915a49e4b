// Package report serves the recorded games and the live world as JSON.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
)

const DefaultAddress = "127.0.0.1:8090"

// GameSource is satisfied by *recorder.Memory.
type GameSource interface {
	Games() []recorder.Game
	Game(handle recorder.GameHandle) (recorder.Game, bool)
}

// WorldSource is satisfied by *model.World.
type WorldSource interface {
	Snapshot() model.Snapshot
}

type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Server struct {
	router *way.Router
	http   *http.Server
	games  GameSource
	world  WorldSource
	opts   Options
}

func NewServer(games GameSource, world WorldSource, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{games: games, world: world, opts: opts}
	s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		log.Infof("report listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("report ListenAndServe: %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.games.Games())
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id := way.Param(r.Context(), "id")
	game, ok := s.games.Game(recorder.GameHandle(id))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no game " + id})
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	if s.world == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "no world"})
		return
	}
	writeJSON(w, http.StatusOK, newWorldView(s.world.Snapshot()))
}

type apiError struct {
	Error string `json:"error"`
}

type snakeView struct {
	model.Snake
	HighScore int `json:"highScore"`
}

// worldView lists entities ordered by id.
type worldView struct {
	Size     int             `json:"size"`
	Walls    []model.Wall    `json:"walls"`
	Snakes   []snakeView     `json:"snakes"`
	Powerups []model.Powerup `json:"powerups"`
}

func newWorldView(snap model.Snapshot) worldView {
	v := worldView{
		Size:     snap.Size,
		Walls:    make([]model.Wall, 0, len(snap.Walls)),
		Snakes:   make([]snakeView, 0, len(snap.Snakes)),
		Powerups: make([]model.Powerup, 0, len(snap.Powerups)),
	}
	for _, w := range snap.Walls {
		v.Walls = append(v.Walls, w)
	}
	for _, sn := range snap.Snakes {
		v.Snakes = append(v.Snakes, snakeView{Snake: sn, HighScore: sn.HighestScoreSeen})
	}
	for _, p := range snap.Powerups {
		v.Powerups = append(v.Powerups, p)
	}
	sort.Slice(v.Walls, func(i, j int) bool { return v.Walls[i].ID < v.Walls[j].ID })
	sort.Slice(v.Snakes, func(i, j int) bool { return v.Snakes[i].ID < v.Snakes[j].ID })
	sort.Slice(v.Powerups, func(i, j int) bool { return v.Powerups[i].ID < v.Powerups[j].ID })
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("report write: %v", err)
	}
}

package recorder

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Game is one row of the games table kept by Memory. A zero End means the game is running.
type Game struct {
	Handle  GameHandle `json:"id"`
	Start   time.Time  `json:"start"`
	End     time.Time  `json:"end"`
	Players []Player   `json:"players,omitempty"`
}

func (g Game) Running() bool {
	return g.End.IsZero()
}

// Player is one stay of a player in a game. A rejoin after leaving opens a new row.
type Player struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	MaxScore int       `json:"maxScore"`
	Enter    time.Time `json:"enter"`
	Leave    time.Time `json:"leave"`
}

func (p Player) Connected() bool {
	return p.Leave.IsZero()
}

// Memory is a Sink holding games and players in memory for the report endpoints.
type Memory struct {
	mu    sync.RWMutex
	games map[GameHandle]*Game
	order []GameHandle
}

func NewMemory() *Memory {
	return &Memory{games: make(map[GameHandle]*Game)}
}

func (m *Memory) Write(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	game := m.games[event.Game]
	if game == nil {
		game = &Game{Handle: event.Game, Start: event.Time}
		m.games[event.Game] = game
		m.order = append(m.order, event.Game)
	}

	switch event.Type {
	case EventGameStarted:
		game.Start = event.Time
	case EventGameEnded:
		game.End = event.Time
	case EventPlayerJoined:
		game.Players = append(game.Players, Player{
			ID:       event.PlayerID,
			Name:     event.Name,
			MaxScore: event.Score,
			Enter:    event.Time,
		})
	case EventPlayerScore:
		if p := openPlayer(game, event.PlayerID); p != nil && event.Score > p.MaxScore {
			p.MaxScore = event.Score
		}
	case EventPlayerLeft:
		if p := openPlayer(game, event.PlayerID); p != nil {
			p.Leave = event.Time
		}
	}
	return nil
}

func openPlayer(game *Game, id int) *Player {
	for i := len(game.Players) - 1; i >= 0; i-- {
		p := &game.Players[i]
		if p.ID == id && p.Connected() {
			return p
		}
	}
	return nil
}

// Games lists every game, oldest first, without players.
func (m *Memory) Games() []Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	games := make([]Game, 0, len(m.order))
	for _, h := range m.order {
		g := *m.games[h]
		g.Players = nil
		games = append(games, g)
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Start.Before(games[j].Start)
	})
	return games
}

// Game returns one game with its players.
func (m *Memory) Game(handle GameHandle) (Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[handle]
	if !ok {
		return Game{}, false
	}
	copied := *g
	copied.Players = append([]Player(nil), g.Players...)
	return copied, true
}

// CloseOpen ends every running game and every connected player at the given time and
// returns how many games it ended. A replayed journal of a crashed client leaves such rows.
func (m *Memory) CloseOpen(at time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ended := 0
	for _, h := range m.order {
		game := m.games[h]
		for i := range game.Players {
			if game.Players[i].Connected() {
				game.Players[i].Leave = at
			}
		}
		if game.Running() {
			game.End = at
			ended++
		}
	}
	return ended
}

func (m *Memory) Close(context.Context) error {
	return nil
}

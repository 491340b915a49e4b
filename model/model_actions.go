package model

import (
	"errors"
	"sync"
)

var ErrSizeAlreadySet = errors.New("world size already set")

// World is the shared arena snapshot. The session is its only writer; any number of
// readers may call Snapshot concurrently.
type World struct {
	mu       sync.RWMutex
	size     int
	sizeSet  bool
	walls    map[int]Wall
	snakes   map[int]Snake
	powerups map[int]Powerup
}

// Snapshot is a deep copy of the world; callers own it.
type Snapshot struct {
	Size     int
	Walls    map[int]Wall
	Snakes   map[int]Snake
	Powerups map[int]Powerup
}

func NewWorld() *World {
	return &World{
		walls:    make(map[int]Wall),
		snakes:   make(map[int]Snake),
		powerups: make(map[int]Powerup),
	}
}

// SetSize records the arena side length. Only the first call takes effect.
func (w *World) SetSize(size int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sizeSet {
		return ErrSizeAlreadySet
	}
	w.size = size
	w.sizeSet = true
	return nil
}

func (w *World) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

func (w *World) AddWall(wall Wall) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.walls[wall.ID] = wall
}

// UpsertSnake stores the snake, or removes it when it is marked disconnected.
// It reports whether the id was absent before the call.
func (w *World) UpsertSnake(s Snake) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s.Disconnected {
		delete(w.snakes, s.ID)
		return false
	}
	_, present := w.snakes[s.ID]
	w.snakes[s.ID] = s.clone()
	return !present
}

func (w *World) UpsertPowerup(p Powerup) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p.Died {
		delete(w.powerups, p.ID)
		return
	}
	w.powerups[p.ID] = p
}

func (w *World) Snake(id int) (Snake, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.snakes[id]
	if !ok {
		return Snake{}, false
	}
	return s.clone(), true
}

func (w *World) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	walls := make(map[int]Wall, len(w.walls))
	for id, wall := range w.walls {
		walls[id] = wall
	}
	snakes := make(map[int]Snake, len(w.snakes))
	for id, s := range w.snakes {
		snakes[id] = s.clone()
	}
	powerups := make(map[int]Powerup, len(w.powerups))
	for id, p := range w.powerups {
		powerups[id] = p
	}
	return Snapshot{
		Size:     w.size,
		Walls:    walls,
		Snakes:   snakes,
		Powerups: powerups,
	}
}

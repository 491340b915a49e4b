// Package recorder receives game and player lifecycle events from a session and hands them to
// durable sinks without ever blocking the caller.
package recorder

import (
	"context"
	"errors"
	"time"
)

// ErrRecorder wraps every failure reported by a Recorder.
var ErrRecorder = errors.New("recorder")

// GameHandle identifies one recorded game.
type GameHandle string

// Recorder is the lifecycle sink a session reports to. Sessions treat every call as
// fire-and-forget: returned errors are logged and never change session state.
type Recorder interface {
	RecordGameStart() (GameHandle, error)
	RecordGameEnd(game GameHandle) error
	RecordPlayerJoin(game GameHandle, playerID int, name string, initialScore int) error
	RecordPlayerScore(game GameHandle, playerID int, newHighScore int) error
	RecordPlayerLeave(game GameHandle, playerID int) error
}

type EventType string

const (
	EventGameStarted  EventType = "game.started"
	EventGameEnded    EventType = "game.ended"
	EventPlayerJoined EventType = "player.joined"
	EventPlayerScore  EventType = "player.score"
	EventPlayerLeft   EventType = "player.left"
)

// Event is what sinks receive. PlayerID, Name and Score are only meaningful for player events.
type Event struct {
	Type     EventType  `json:"type"`
	Game     GameHandle `json:"game"`
	Time     time.Time  `json:"time"`
	PlayerID int        `json:"playerId"`
	Name     string     `json:"name,omitempty"`
	Score    int        `json:"score"`
}

// Sink persists events. Write is only ever called from one goroutine per sink.
type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

type nopRecorder struct{}

func (nopRecorder) RecordGameStart() (GameHandle, error) { return "", nil }
func (nopRecorder) RecordGameEnd(GameHandle) error { return nil }
func (nopRecorder) RecordPlayerJoin(GameHandle, int, string, int) error { return nil }
func (nopRecorder) RecordPlayerScore(GameHandle, int, int) error { return nil }
func (nopRecorder) RecordPlayerLeave(GameHandle, int) error { return nil }

func Nop() Recorder {
	return nopRecorder{}
}

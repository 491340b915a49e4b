package client

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
)

type SessionState int

const (
	SS_DISCONNECTED SessionState = iota
	SS_HANDSHAKING
	SS_AWAITING_WALLS
	SS_LIVE
	SS_CLOSED
)

// Session keeps a World in sync with one arena server connection.
// The receive loop is the only writer of the world; readers use World().Snapshot().
type Session struct {
	dialer   Dialer
	world    *model.World
	recorder recorder.Recorder
	log      *log.Entry

	mu            sync.Mutex
	state         SessionState
	err           error
	transport     Transport
	playerID      int
	wallsReceived bool
	game          recorder.GameHandle
	gameStarted   bool
	players       map[int]*trackedPlayer
	debug         DebugStats

	closeOnce sync.Once
	done      chan struct{}
}

// trackedPlayer exists from a player's join until its leave has been recorded.
type trackedPlayer struct {
	name      string
	highScore int
}

type DebugStats struct {
	InRecords   int
	Skipped     int
	OutMessages int
	LastRecord  time.Time
}

package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zucenko/snakes/client"
	"github.com/zucenko/snakes/model"
)

type GameServer struct {
	Arena    *GameSession
	Upgrader *websocket.Upgrader
}

type GameSessionState int

const (
	GS_NEW GameSessionState = iota
	GS_PLAY
	GS_OVER
)

// GameSession is one arena. Its Loop goroutine owns every field below the channels.
type GameSession struct {
	State         GameSessionState
	Script        *Script
	FrameInterval time.Duration

	PlayerSessions []*PlayerSession
	nextID         int
	frame          int
	moves          int

	PlayerConnectRequests chan PlayerConnectRequest
	Events                chan PlayerEvent
	Errors                chan int
	statsRequests         chan chan ArenaStats
	quit                  chan struct{}
	stopped               chan struct{}
	closeOnce             sync.Once
}

type PlayerSessionState int

const (
	PS_NEW PlayerSessionState = iota + 1
	PS_PLAY
	PS_OVER
)

type PlayerSession struct {
	State       PlayerSessionState
	Id          int
	Remote      string
	GameSession *GameSession
	Conn        client.Transport
	GameOver    chan struct{}
	Snake       model.Snake
	Heading     model.Direction

	MessagesToSend chan string

	DebugInMessages  int
	DebugOutMessages int
	DebugLastMessage time.Time
}

// ArenaStats is a copy of the loop state, for logging and tests.
type ArenaStats struct {
	State     GameSessionState
	Players   map[int]string
	Headings  map[int]model.Direction
	Moves     int
	FramesOut int
}

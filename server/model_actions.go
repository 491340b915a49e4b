package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/client"
	"github.com/zucenko/snakes/model"
)

const requestTimeout = 200 * time.Millisecond

// NewGameServer replays script to every player. A zero frameInterval sends all frames right after
// the walls and applies moves as they arrive; otherwise frames and moves advance on a ticker.
func NewGameServer(script *Script, frameInterval time.Duration) *GameServer {
	return &GameServer{
		Arena:    NewGameSession(script, frameInterval),
		Upgrader: &websocket.Upgrader{},
	}
}

func NewGameSession(script *Script, frameInterval time.Duration) *GameSession {
	if script == nil {
		script = DefaultScript()
	}
	return &GameSession{
		State:                 GS_NEW,
		Script:                script,
		FrameInterval:         frameInterval,
		PlayerSessions:        make([]*PlayerSession, 0),
		nextID:                script.FirstPlayerID,
		PlayerConnectRequests: make(chan PlayerConnectRequest),
		Events:                make(chan PlayerEvent, 64),
		Errors:                make(chan int),
		statsRequests:         make(chan chan ArenaStats),
		quit:                  make(chan struct{}),
		stopped:               make(chan struct{}),
	}
}

func (s *GameServer) Loop() {
	s.Arena.Loop()
}

func (s *GameServer) Close() {
	s.Arena.Close()
}

func (s *GameServer) HandleHttpCall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("HandleHttpCall - connection received from %s", r.RemoteAddr)
		if s.Arena.Over() {
			w.WriteHeader(HTTP_SERVER_ERR)
			return
		}
		con, err := s.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an http error
			log.Warnf("HandleHttpCall websocket upgrade err %v", err)
			return
		}
		s.Arena.Serve(client.NewWebsocketTransport(con), r.RemoteAddr)
	}
}

// Serve accepts plain TCP players until ln is closed.
func (s *GameServer) Serve(ln net.Listener) error {
	log.Infof("GameServer serving tcp on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.Arena.Serve(client.NewLineTransport(conn), conn.RemoteAddr().String())
	}
}

// Serve reads the player name, hands the connection to the loop and blocks until the player is gone.
func (gs *GameSession) Serve(conn client.Transport, remote string) {
	defer conn.Close()
	name, err := conn.ReadLine()
	if err != nil {
		log.Warnf("GameSession.Serve %s sent no name: %v", remote, err)
		return
	}

	gameOver := make(chan struct{})
	select {
	case gs.PlayerConnectRequests <- PlayerConnectRequest{
		Conn:     conn,
		Name:     name,
		Remote:   remote,
		GameOver: gameOver}:
	case <-time.After(requestTimeout):
		log.Warn("PlayerConnectRequests TIMEOUTED")
		return
	case <-gs.quit:
		return
	}
	<-gameOver
}

func (gs *GameSession) Loop() {
	log.Info("GameSession.Loop start")
	defer close(gs.stopped)

	var tick <-chan time.Time
	if gs.FrameInterval > 0 {
		ticker := time.NewTicker(gs.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case pcr := <-gs.PlayerConnectRequests:
			gs.addPlayer(pcr)
		case id := <-gs.Errors:
			gs.removePlayer(id)
		case pe := <-gs.Events:
			gs.Turn(pe)
		case <-tick:
			gs.tick()
		case reply := <-gs.statsRequests:
			reply <- gs.stats()
		case <-gs.quit:
			for _, ps := range gs.PlayerSessions {
				ps.State = PS_OVER
				close(ps.MessagesToSend)
			}
			gs.PlayerSessions = nil
			gs.State = GS_OVER
			log.Info("GameSession.Loop ended")
			return
		}
	}
}

// Close stops the loop and lets every connected player go.
func (gs *GameSession) Close() {
	gs.closeOnce.Do(func() { close(gs.quit) })
}

func (gs *GameSession) Over() bool {
	select {
	case <-gs.quit:
		return true
	default:
		return false
	}
}

// Stats asks the running loop for a copy of its state.
func (gs *GameSession) Stats() ArenaStats {
	reply := make(chan ArenaStats, 1)
	select {
	case gs.statsRequests <- reply:
		return <-reply
	case <-gs.stopped:
		return ArenaStats{State: GS_OVER}
	}
}

func (gs *GameSession) addPlayer(pcr PlayerConnectRequest) {
	id := gs.nextID
	gs.nextID++
	center := gs.Script.Size / 2
	ps := &PlayerSession{
		State:          PS_NEW,
		Id:             id,
		Remote:         pcr.Remote,
		GameSession:    gs,
		Conn:           pcr.Conn,
		GameOver:       pcr.GameOver,
		Heading:        model.DirNone,
		MessagesToSend: make(chan string, gs.queueSize()),
		Snake: model.Snake{
			ID:     id,
			Name:   pcr.Name,
			Body:   []model.Point2D{{X: center, Y: center}},
			Alive:  true,
			Joined: true,
		},
	}
	log.Infof("GameSession.addPlayer %d (%s) from %s", id, pcr.Name, pcr.Remote)

	ps.send(strconv.Itoa(id))
	ps.send(strconv.Itoa(gs.Script.Size))
	for _, wall := range gs.Script.Walls {
		ps.send(wall)
	}
	for _, other := range gs.PlayerSessions {
		if line, err := model.Encode(other.Snake); err == nil {
			ps.send(line)
		}
	}

	// start processing moves from the player
	go ps.LoopChannelRead()
	// start sending to the player
	go ps.LoopChannelWrite()
	gs.PlayerSessions = append(gs.PlayerSessions, ps)
	ps.State = PS_PLAY
	if gs.State == GS_NEW {
		gs.State = GS_PLAY
	}

	gs.broadcastSnake(ps.Snake)
	ps.Snake.Joined = false

	if gs.FrameInterval == 0 {
		for _, frame := range gs.Script.Frames {
			for _, line := range frame {
				ps.send(line)
			}
		}
	}
}

func (gs *GameSession) removePlayer(id int) {
	for i, ps := range gs.PlayerSessions {
		if ps.Id != id {
			continue
		}
		log.Infof("GameSession.removePlayer %d (%s)", id, ps.Snake.Name)
		ps.State = PS_OVER
		close(ps.MessagesToSend)
		gs.PlayerSessions = append(gs.PlayerSessions[:i], gs.PlayerSessions[i+1:]...)
		gs.broadcastSnake(model.Snake{ID: id, Name: ps.Snake.Name, Body: []model.Point2D{}, Disconnected: true})
		return
	}
}

// Turn applies one move command. Without a frame ticker the snake steps right away.
func (gs *GameSession) Turn(pe PlayerEvent) {
	ps := gs.player(pe.Player)
	if ps == nil {
		return
	}
	log.Debugf("player %d moving %s", pe.Player, pe.Direction)
	gs.moves++
	ps.Heading = pe.Direction
	if gs.FrameInterval == 0 {
		gs.step(ps)
	}
}

func (gs *GameSession) tick() {
	if n := len(gs.Script.Frames); n > 0 {
		for _, line := range gs.Script.Frames[gs.frame%n] {
			gs.broadcast(line)
		}
	}
	gs.frame++
	for _, ps := range gs.PlayerSessions {
		gs.step(ps)
	}
}

func (gs *GameSession) step(ps *PlayerSession) {
	v, ok := headings[ps.Heading]
	if !ok {
		return
	}
	head, _ := ps.Snake.Head()
	size := gs.Script.Size
	ps.Snake.Body = []model.Point2D{{X: wrap(head.X+v.X, size), Y: wrap(head.Y+v.Y, size)}}
	ps.Snake.Dir = v
	gs.broadcastSnake(ps.Snake)
}

func (gs *GameSession) broadcastSnake(snake model.Snake) {
	line, err := model.Encode(snake)
	if err != nil {
		log.Errorf("cant encode snake %d: %v", snake.ID, err)
		return
	}
	gs.broadcast(line)
}

func (gs *GameSession) broadcast(line string) {
	for _, ps := range gs.PlayerSessions {
		ps.send(line)
	}
}

func (gs *GameSession) player(id int) *PlayerSession {
	for _, ps := range gs.PlayerSessions {
		if ps.Id == id {
			return ps
		}
	}
	return nil
}

func (gs *GameSession) queueSize() int {
	n := len(gs.Script.Walls) + 64
	if gs.FrameInterval == 0 {
		for _, frame := range gs.Script.Frames {
			n += len(frame)
		}
	}
	return n
}

func (gs *GameSession) stats() ArenaStats {
	st := ArenaStats{
		State:     gs.State,
		Players:   make(map[int]string, len(gs.PlayerSessions)),
		Headings:  make(map[int]model.Direction, len(gs.PlayerSessions)),
		Moves:     gs.moves,
		FramesOut: gs.frame,
	}
	for _, ps := range gs.PlayerSessions {
		st.Players[ps.Id] = ps.Snake.Name
		st.Headings[ps.Id] = ps.Heading
	}
	return st
}

// send is called from the loop only. A full queue drops the line rather than stall the arena.
func (ps *PlayerSession) send(line string) {
	select {
	case ps.MessagesToSend <- line:
	default:
		log.Warnf("dropping message to player %d, MessagesToSend FULL", ps.Id)
	}
}

func (ps *PlayerSession) LoopChannelRead() {
	log.Printf("LoopChannelRead STARTED player %d", ps.Id)
	gs := ps.GameSession
loop:
	for {
		line, err := ps.Conn.ReadLine()
		if err != nil {
			log.Printf("LoopChannelRead player %d: %v", ps.Id, err)
			break loop
		}
		ps.DebugLastMessage = time.Now()
		ps.DebugInMessages++

		cm := model.MoveCommand{}
		if err := json.Unmarshal([]byte(line), &cm); err != nil {
			log.Warnf("LoopChannelRead player %d cant decode %q", ps.Id, line)
			continue
		}
		dir, err := model.ParseDirection(string(cm.Moving))
		if err != nil {
			log.Warnf("LoopChannelRead player %d: %v", ps.Id, err)
			continue
		}

		select {
		case gs.Events <- PlayerEvent{Player: ps.Id, Direction: dir}:
		case <-gs.quit:
			break loop
		default:
			log.Warn("Dropping move read from socket, GameSession.Events FULL")
		}
	}
	select {
	case gs.Errors <- ps.Id:
	case <-gs.quit:
	}
	log.Printf("LoopChannelRead ENDED player %d", ps.Id)
}

// LoopChannelWrite only consumes, so a slow player never blocks the loop.
// It ends when the loop closes MessagesToSend or a write fails.
func (ps *PlayerSession) LoopChannelWrite() {
	log.Printf("PlayerSession.LoopChannelWrite STARTED player %d", ps.Id)
	defer close(ps.GameOver)
	for line := range ps.MessagesToSend {
		if err := ps.Conn.WriteLine(line); err != nil {
			log.Warnf("PlayerSession.LoopChannelWrite player %d cant write: %v", ps.Id, err)
			return
		}
		ps.DebugOutMessages++
	}
	log.Printf("LoopChannelWrite ENDED player %d", ps.Id)
}

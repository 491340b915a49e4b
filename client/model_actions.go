package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
)

// NewSession prepares a disconnected session. A nil recorder records nothing.
func NewSession(world *model.World, rec recorder.Recorder, dialer Dialer) *Session {
	if world == nil {
		world = model.NewWorld()
	}
	if rec == nil {
		rec = recorder.Nop()
	}
	if dialer == nil {
		dialer = TCPDialer{}
	}
	return &Session{
		dialer:   dialer,
		world:    world,
		recorder: rec,
		log:      log.WithField("component", "session"),
		state:    SS_DISCONNECTED,
		players:  make(map[int]*trackedPlayer),
		done:     make(chan struct{}),
	}
}

// Connect dials the server, runs the handshake and starts the receive loop.
// ctx bounds the dial and the handshake only; use Disconnect to end a running session.
// On error the session is already SS_CLOSED. Err reports the same error, unless Disconnect
// closed the session first: Connect then returns ErrDisconnected and Err reports nil.
func (s *Session) Connect(ctx context.Context, host string, port int, name string) error {
	s.mu.Lock()
	if s.state != SS_DISCONNECTED {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	s.log = s.log.WithField("addr", addr)
	s.setState(SS_HANDSHAKING)
	s.mu.Unlock()

	if strings.ContainsAny(name, "\r\n") {
		return s.fail(fmt.Errorf("%w: name %q spans several lines", ErrHandshake, name))
	}

	t, err := s.dialer.Dial(ctx, addr)
	if err != nil {
		return s.fail(fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err))
	}

	s.mu.Lock()
	if s.state == SS_CLOSED {
		s.mu.Unlock()
		t.Close()
		return ErrDisconnected
	}
	s.transport = t
	s.record("game start", func(r recorder.Recorder) error {
		game, err := r.RecordGameStart()
		s.game = game
		return err
	})
	s.gameStarted = true
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { t.Close() })
	playerID, err := s.handshake(t, name)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrHandshake, err))
	}

	s.mu.Lock()
	if s.state == SS_CLOSED {
		s.mu.Unlock()
		return ErrDisconnected
	}
	s.playerID = playerID
	s.log = s.log.WithField("player", playerID)
	s.setState(SS_AWAITING_WALLS)
	s.mu.Unlock()

	go s.receive(t)
	return nil
}

func (s *Session) handshake(t Transport, name string) (int, error) {
	if err := t.WriteLine(name); err != nil {
		return 0, fmt.Errorf("send name: %v", err)
	}
	idLine, err := t.ReadLine()
	if err != nil {
		return 0, fmt.Errorf("read player id: %v", err)
	}
	playerID, err := model.DecodeScalar(idLine)
	if err != nil {
		return 0, fmt.Errorf("player id %q: %v", idLine, err)
	}
	sizeLine, err := t.ReadLine()
	if err != nil {
		return 0, fmt.Errorf("read arena size: %v", err)
	}
	size, err := model.DecodeScalar(sizeLine)
	if err != nil {
		return 0, fmt.Errorf("arena size %q: %v", sizeLine, err)
	}
	if err := s.world.SetSize(size); err != nil {
		return 0, err
	}
	s.log.Infof("handshake done, player id %d, arena size %d", playerID, size)
	return playerID, nil
}

func (s *Session) receive(t Transport) {
	s.log.Debug("receive loop STARTED")
	for {
		line, err := t.ReadLine()
		if err != nil {
			s.close(s.closeCause(err))
			s.log.Debug("receive loop ENDED")
			return
		}
		s.process(line)
	}
}

// closeCause maps the error that ended the receive loop to the session error.
// A remote close or a requested disconnect is not an error.
func (s *Session) closeCause(err error) error {
	s.mu.Lock()
	closed := s.state == SS_CLOSED
	s.mu.Unlock()
	if closed || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: read: %v", ErrConnection, err)
}

func (s *Session) process(line string) {
	rec, err := model.Decode(line)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SS_CLOSED {
		return
	}
	s.debug.InRecords++
	s.debug.LastRecord = time.Now()
	if err != nil {
		s.debug.Skipped++
		s.log.WithError(err).Warn("skipping record")
		return
	}

	if s.state == SS_AWAITING_WALLS {
		if rec.Kind == model.RK_WALL {
			s.world.AddWall(*rec.Wall)
			return
		}
		// no terminator on the wire: the first non-wall record ends the wall phase
		s.wallsReceived = true
		s.setState(SS_LIVE)
	}

	switch rec.Kind {
	case model.RK_WALL:
		s.log.Debugf("ignoring wall %d after wall phase", rec.Wall.ID)
	case model.RK_SNAKE:
		s.applySnake(*rec.Snake)
	case model.RK_POWER:
		s.world.UpsertPowerup(*rec.Powerup)
	}
}

// applySnake must be called with s.mu held.
func (s *Session) applySnake(snake model.Snake) {
	tracked, isTracked := s.players[snake.ID]

	if snake.Disconnected {
		if isTracked {
			s.log.Infof("player %d (%s) left", snake.ID, tracked.name)
			s.record("player leave", func(r recorder.Recorder) error {
				return r.RecordPlayerLeave(s.game, snake.ID)
			})
			delete(s.players, snake.ID)
		}
		s.world.UpsertSnake(snake)
		return
	}

	snake.HighestScoreSeen = snake.Score
	if isTracked && tracked.highScore > snake.Score {
		snake.HighestScoreSeen = tracked.highScore
	}

	if s.world.UpsertSnake(snake) || !isTracked {
		s.players[snake.ID] = &trackedPlayer{name: snake.Name, highScore: snake.Score}
		s.log.Infof("player %d (%s) joined", snake.ID, snake.Name)
		s.record("player join", func(r recorder.Recorder) error {
			return r.RecordPlayerJoin(s.game, snake.ID, snake.Name, snake.Score)
		})
		return
	}

	if snake.Score > tracked.highScore {
		tracked.highScore = snake.Score
		s.record("player score", func(r recorder.Recorder) error {
			return r.RecordPlayerScore(s.game, snake.ID, snake.Score)
		})
	}
}

// record shields the session from recorder errors and panics.
func (s *Session) record(what string, call func(recorder.Recorder) error) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Errorf("recorder panicked on %s: %v", what, p)
		}
	}()
	if err := call(s.recorder); err != nil {
		s.log.WithError(err).Warnf("recorder failed on %s", what)
	}
}

// Move sends a movement command. It is silently dropped until the walls have been received
// and after the session is closed.
func (s *Session) Move(dir model.Direction) error {
	line, err := model.EncodeMove(dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	ready := s.state == SS_LIVE && s.wallsReceived
	t := s.transport
	lg := s.log
	s.mu.Unlock()
	if !ready {
		lg.Debugf("dropping move %s before walls were received", dir)
		return nil
	}
	if err := t.WriteLine(line); err != nil {
		return fmt.Errorf("%w: send move: %v", ErrConnection, err)
	}
	s.mu.Lock()
	s.debug.OutMessages++
	s.mu.Unlock()
	return nil
}

// Disconnect closes the transport, which unblocks the receive loop, and runs the teardown.
// It is safe to call at any time and more than once.
func (s *Session) Disconnect() {
	s.close(nil)
}

// close moves the session to SS_CLOSED exactly once: every tracked player gets a leave
// and the game gets its end before Done is closed. It reports whether this call did the closing.
func (s *Session) close(cause error) bool {
	closed := false
	s.closeOnce.Do(func() {
		closed = true
		s.mu.Lock()
		defer s.mu.Unlock()

		s.setState(SS_CLOSED)
		s.err = cause
		if s.transport != nil {
			s.transport.Close()
		}

		ids := make([]int, 0, len(s.players))
		for id := range s.players {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			id := id
			s.record("player leave", func(r recorder.Recorder) error {
				return r.RecordPlayerLeave(s.game, id)
			})
			delete(s.players, id)
		}
		if s.gameStarted {
			s.record("game end", func(r recorder.Recorder) error {
				return r.RecordGameEnd(s.game)
			})
		}

		if cause != nil {
			s.log.WithError(cause).Warn("session closed")
		} else {
			s.log.Info("session closed")
		}
		close(s.done)
	})
	return closed
}

// fail closes the session with err, or reports ErrDisconnected when it was already closed.
func (s *Session) fail(err error) error {
	if s.close(err) {
		return err
	}
	return ErrDisconnected
}

// setState must be called with s.mu held.
func (s *Session) setState(next SessionState) {
	if s.state == next {
		return
	}
	s.log.Infof("session %s -> %s", s.state.Name(), next.Name())
	s.state = next
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the fatal error that closed the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) PlayerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) Game() recorder.GameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

func (s *Session) World() *model.World {
	return s.world
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is closed and returns Err.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

func (s *Session) Debug() DebugStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debug
}

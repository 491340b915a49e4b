package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
)

// scriptTransport is an in-memory Transport driven by the test.
type scriptTransport struct {
	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
	readErr   error

	mu      sync.Mutex
	written []string
}

func newScriptTransport() *scriptTransport {
	return &scriptTransport{
		lines:  make(chan string, 128),
		closed: make(chan struct{}),
	}
}

func (t *scriptTransport) feed(lines ...string) {
	for _, l := range lines {
		t.lines <- l
	}
}

// hangUp makes the next read past the fed lines return io.EOF.
func (t *scriptTransport) hangUp() {
	close(t.lines)
}

func (t *scriptTransport) ReadLine() (string, error) {
	select {
	case <-t.closed:
		return "", net.ErrClosed
	default:
	}
	select {
	case l, ok := <-t.lines:
		if !ok {
			if t.readErr != nil {
				return "", t.readErr
			}
			return "", io.EOF
		}
		return l, nil
	case <-t.closed:
		return "", net.ErrClosed
	}
}

func (t *scriptTransport) WriteLine(line string) error {
	select {
	case <-t.closed:
		return net.ErrClosed
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, line)
	return nil
}

func (t *scriptTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *scriptTransport) Written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}

func (t *scriptTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *scriptTransport) dialer() Dialer {
	return DialerFunc(func(context.Context, string) (Transport, error) {
		return t, nil
	})
}

// fakeRecorder records calls synchronously as short strings.
type fakeRecorder struct {
	mu     sync.Mutex
	calls  []string
	err    error
	panics bool
}

func (r *fakeRecorder) add(format string, args ...interface{}) error {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
	if r.panics {
		panic("sink exploded")
	}
	return r.err
}

func (r *fakeRecorder) RecordGameStart() (recorder.GameHandle, error) {
	return "g1", r.add("start")
}

func (r *fakeRecorder) RecordGameEnd(game recorder.GameHandle) error {
	return r.add("end %s", game)
}

func (r *fakeRecorder) RecordPlayerJoin(game recorder.GameHandle, id int, name string, score int) error {
	return r.add("join %d %s %d", id, name, score)
}

func (r *fakeRecorder) RecordPlayerScore(game recorder.GameHandle, id int, score int) error {
	return r.add("score %d %d", id, score)
}

func (r *fakeRecorder) RecordPlayerLeave(game recorder.GameHandle, id int) error {
	return r.add("leave %d", id)
}

func (r *fakeRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func wallLine(id, x1, y1, x2, y2 int) string {
	return fmt.Sprintf(`{"wall":%d,"p1":{"X":%d,"Y":%d},"p2":{"X":%d,"Y":%d}}`, id, x1, y1, x2, y2)
}

func snakeLine(id int, name string, score int) string {
	return fmt.Sprintf(`{"snake":%d,"name":%q,"body":[{"X":1,"Y":1}],"dir":{"X":1,"Y":0},"score":%d,"died":false,"alive":true,"dc":false,"join":false}`, id, name, score)
}

func snakeLeftLine(id int) string {
	return fmt.Sprintf(`{"snake":%d,"name":"","body":[],"dir":{"X":0,"Y":0},"score":0,"died":false,"alive":false,"dc":true,"join":false}`, id)
}

func powerLine(id, x, y int, died bool) string {
	return fmt.Sprintf(`{"power":%d,"loc":{"X":%d,"Y":%d},"died":%t}`, id, x, y, died)
}

// connected returns a session that finished the handshake as player 42 in a 20 wide arena.
func connected(t *testing.T, rec recorder.Recorder) (*Session, *scriptTransport) {
	t.Helper()
	tr := newScriptTransport()
	tr.feed("42", "20")
	s := NewSession(model.NewWorld(), rec, tr.dialer())
	require.NoError(t, s.Connect(context.Background(), "arena", 11000, "Ada"))
	t.Cleanup(s.Disconnect)
	return s, tr
}

func waitClosed(t *testing.T, s *Session) error {
	t.Helper()
	select {
	case <-s.Done():
		return s.Err()
	case <-time.After(2 * time.Second):
		t.Fatalf("session still %s", s.State().Name())
		return errors.New("unreachable")
	}
}

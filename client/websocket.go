package client

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer reaches servers that carry the line protocol inside websocket text messages.
// One message may hold several lines.
type WebsocketDialer struct {
	Path   string
	Secure bool
	Dialer *websocket.Dialer
}

func (d WebsocketDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	scheme := "ws"
	if d.Secure {
		scheme = "wss"
	}
	path := d.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: scheme, Host: addr, Path: path}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return NewWebsocketTransport(conn), nil
}

// NewWebsocketTransport frames an established websocket connection into lines.
func NewWebsocketTransport(conn *websocket.Conn) Transport {
	return &wsTransport{conn: conn}
}

type wsTransport struct {
	conn      *websocket.Conn
	pending   []string
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (t *wsTransport) ReadLine() (string, error) {
	for len(t.pending) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}
		for _, line := range strings.Split(strings.TrimRight(string(data), "\r\n"), "\n") {
			t.pending = append(t.pending, strings.TrimRight(line, "\r"))
		}
	}
	line := t.pending[0]
	t.pending = t.pending[1:]
	return line, nil
}

func (t *wsTransport) WriteLine(line string) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line+"\n"))
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

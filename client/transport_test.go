package client

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTransport(t *testing.T) {
	local, remote := net.Pipe()
	tr := NewLineTransport(local)

	go func() {
		io.WriteString(remote, "1\r\n2\n")
		io.WriteString(remote, "3")
		remote.Close()
	}()

	for _, want := range []string{"1", "2", "3"} {
		line, err := tr.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := tr.ReadLine()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}

func TestLineTransportWrite(t *testing.T) {
	local, remote := net.Pipe()
	tr := NewLineTransport(local)
	defer tr.Close()

	got := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(remote).ReadString('\n')
		got <- line
	}()
	require.NoError(t, tr.WriteLine(`{"moving":"up"}`))
	assert.Equal(t, "{\"moving\":\"up\"}\n", <-got)
}

func TestLineTransportCloseUnblocksRead(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	tr := NewLineTransport(local)

	errs := make(chan error, 1)
	go func() {
		_, err := tr.ReadLine()
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, tr.Close())

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("read still blocked")
	}
}

func TestTCPDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		name, _ := bufio.NewReader(conn).ReadString('\n')
		io.WriteString(conn, strings.ToUpper(name))
	}()

	tr, err := TCPDialer{Timeout: time.Second}.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.WriteLine("ada"))
	line, err := tr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "ADA", line)
}

func TestWebsocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/play" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		conn.WriteMessage(websocket.TextMessage, []byte("42\n20\n"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"power":1,"loc":{"X":1,"Y":1},"died":false}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.ReadMessage()
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	tr, err := WebsocketDialer{Path: "/play"}.Dial(context.Background(), addr)
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.WriteLine("Ada"))
	assert.Equal(t, "Ada\n", <-received)

	for _, want := range []string{"42", "20", `{"power":1,"loc":{"X":1,"Y":1},"died":false}`} {
		line, err := tr.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err = tr.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestWebsocketDialerWrongPath(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := WebsocketDialer{Path: "/nowhere"}.Dial(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	assert.Error(t, err)
}

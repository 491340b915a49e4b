package client

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Transport carries newline-delimited records. ReadLine is called from one goroutine only;
// WriteLine may be called concurrently and Close must unblock a pending ReadLine.
type Transport interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, addr string) (Transport, error)
}

type DialerFunc func(ctx context.Context, addr string) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context, addr string) (Transport, error) {
	return f(ctx, addr)
}

type lineTransport struct {
	conn      io.ReadWriteCloser
	reader    *bufio.Reader
	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewLineTransport frames any byte stream into lines.
func NewLineTransport(conn io.ReadWriteCloser) Transport {
	return &lineTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (t *lineTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		// a final unterminated line is still a record
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *lineTransport) WriteLine(line string) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_, err := io.WriteString(t.conn, line+"\n")
	return err
}

func (t *lineTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// TCPDialer opens plain TCP connections. Stalled servers are left to TCP keep-alive.
type TCPDialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (Transport, error) {
	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewLineTransport(conn), nil
}

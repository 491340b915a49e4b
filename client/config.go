package client

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	TransportTCP       = "tcp"
	TransportWebsocket = "ws"
)

type Config struct {
	Host      string
	Port      int
	Name      string
	Transport string
	WSPath    string

	DialTimeout time.Duration
	KeepAlive   time.Duration

	LogLevel       string
	ReportAddr     string
	JournalPath    string
	RecorderBuffer int
	RenderInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           11000,
		Name:           "player",
		Transport:      TransportTCP,
		WSPath:         "/play",
		DialTimeout:    5 * time.Second,
		KeepAlive:      15 * time.Second,
		LogLevel:       "info",
		RecorderBuffer: 512,
		RenderInterval: time.Second,
	}
}

// ConfigFromEnv overlays SNAKES_* environment variables on DefaultConfig.
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.LookupEnv)
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var err error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s: %v", key, perr)
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("%s: %v", key, perr)
				return
			}
			*dst = d
		}
	}

	str("SNAKES_HOST", &c.Host)
	num("SNAKES_PORT", &c.Port)
	str("SNAKES_NAME", &c.Name)
	str("SNAKES_TRANSPORT", &c.Transport)
	str("SNAKES_WS_PATH", &c.WSPath)
	dur("SNAKES_DIAL_TIMEOUT", &c.DialTimeout)
	dur("SNAKES_KEEPALIVE", &c.KeepAlive)
	str("SNAKES_LOG_LEVEL", &c.LogLevel)
	str("SNAKES_REPORT_ADDR", &c.ReportAddr)
	str("SNAKES_JOURNAL", &c.JournalPath)
	num("SNAKES_RECORDER_BUFFER", &c.RecorderBuffer)
	dur("SNAKES_RENDER_INTERVAL", &c.RenderInterval)
	if err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if c.Transport != TransportTCP && c.Transport != TransportWebsocket {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

func (c Config) Dialer() Dialer {
	if c.Transport == TransportWebsocket {
		return WebsocketDialer{
			Path:   c.WSPath,
			Dialer: &websocket.Dialer{HandshakeTimeout: c.DialTimeout, Proxy: http.ProxyFromEnvironment},
		}
	}
	return TCPDialer{Timeout: c.DialTimeout, KeepAlive: c.KeepAlive}
}

package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	c, err := configFromLookup(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
	assert.IsType(t, TCPDialer{}, c.Dialer())
}

func TestConfigFromEnv(t *testing.T) {
	c, err := configFromLookup(lookupFrom(map[string]string{
		"SNAKES_HOST":            "arena.example.org",
		"SNAKES_PORT":            "12000",
		"SNAKES_NAME":            "Ada",
		"SNAKES_TRANSPORT":       "ws",
		"SNAKES_WS_PATH":         "/snakes",
		"SNAKES_DIAL_TIMEOUT":    "2s",
		"SNAKES_JOURNAL":         "games.jsonl",
		"SNAKES_RECORDER_BUFFER": "64",
		"SNAKES_RENDER_INTERVAL": "250ms",
		"SNAKES_LOG_LEVEL":       "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "arena.example.org", c.Host)
	assert.Equal(t, 12000, c.Port)
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, 2*time.Second, c.DialTimeout)
	assert.Equal(t, "games.jsonl", c.JournalPath)
	assert.Equal(t, 64, c.RecorderBuffer)
	assert.Equal(t, 250*time.Millisecond, c.RenderInterval)
	assert.Equal(t, "info", c.LogLevel)

	d, ok := c.Dialer().(WebsocketDialer)
	require.True(t, ok)
	assert.Equal(t, "/snakes", d.Path)
	assert.Equal(t, 2*time.Second, d.Dialer.HandshakeTimeout)
}

func TestConfigErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"port not a number": {"SNAKES_PORT": "eleven"},
		"port out of range": {"SNAKES_PORT": "70000"},
		"bad duration":      {"SNAKES_RENDER_INTERVAL": "soon"},
		"bad transport":     {"SNAKES_TRANSPORT": "udp"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := configFromLookup(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}

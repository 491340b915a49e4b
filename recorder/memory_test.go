package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRejoinOpensNewRow(t *testing.T) {
	m := NewMemory()
	t0 := time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Type: EventGameStarted, Game: "g1", Time: t0},
		{Type: EventPlayerJoined, Game: "g1", Time: t0.Add(time.Second), PlayerID: 7, Name: "Ada", Score: 0},
		{Type: EventPlayerScore, Game: "g1", Time: t0.Add(2 * time.Second), PlayerID: 7, Score: 5},
		{Type: EventPlayerScore, Game: "g1", Time: t0.Add(3 * time.Second), PlayerID: 7, Score: 3},
		{Type: EventPlayerLeft, Game: "g1", Time: t0.Add(4 * time.Second), PlayerID: 7},
		{Type: EventPlayerJoined, Game: "g1", Time: t0.Add(5 * time.Second), PlayerID: 7, Name: "Ada", Score: 1},
		{Type: EventPlayerScore, Game: "g1", Time: t0.Add(6 * time.Second), PlayerID: 7, Score: 2},
	}
	for _, e := range events {
		require.NoError(t, m.Write(e))
	}

	g, ok := m.Game("g1")
	require.True(t, ok)
	assert.True(t, g.Running())
	require.Len(t, g.Players, 2)

	first, second := g.Players[0], g.Players[1]
	assert.Equal(t, 5, first.MaxScore)
	assert.Equal(t, t0.Add(4*time.Second), first.Leave)
	assert.Equal(t, 2, second.MaxScore)
	assert.True(t, second.Connected())
}

func TestMemoryGamesOrderedWithoutPlayers(t *testing.T) {
	m := NewMemory()
	t0 := time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)
	require.NoError(t, m.Write(Event{Type: EventGameStarted, Game: "late", Time: t0.Add(time.Hour)}))
	require.NoError(t, m.Write(Event{Type: EventGameStarted, Game: "early", Time: t0}))
	require.NoError(t, m.Write(Event{Type: EventPlayerJoined, Game: "early", Time: t0, PlayerID: 1}))

	games := m.Games()
	require.Len(t, games, 2)
	assert.Equal(t, GameHandle("early"), games[0].Handle)
	assert.Equal(t, GameHandle("late"), games[1].Handle)
	assert.Nil(t, games[0].Players)

	_, ok := m.Game("missing")
	assert.False(t, ok)
}

func TestMemoryGameIsCopied(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write(Event{Type: EventPlayerJoined, Game: "g", PlayerID: 1, Name: "a"}))
	g, _ := m.Game("g")
	g.Players[0].Name = "changed"
	again, _ := m.Game("g")
	assert.Equal(t, "a", again.Players[0].Name)
}

func TestMemoryCloseOpen(t *testing.T) {
	m := NewMemory()
	t0 := time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Type: EventGameStarted, Game: "done", Time: t0},
		{Type: EventPlayerJoined, Game: "done", Time: t0, PlayerID: 1, Name: "bot"},
		{Type: EventPlayerLeft, Game: "done", Time: t0.Add(time.Second), PlayerID: 1},
		{Type: EventGameEnded, Game: "done", Time: t0.Add(2 * time.Second)},
		{Type: EventGameStarted, Game: "crashed", Time: t0.Add(time.Minute)},
		{Type: EventPlayerJoined, Game: "crashed", Time: t0.Add(time.Minute), PlayerID: 7, Name: "Ada"},
		{Type: EventPlayerJoined, Game: "crashed", Time: t0.Add(time.Minute), PlayerID: 8, Name: "zed"},
		{Type: EventPlayerLeft, Game: "crashed", Time: t0.Add(2 * time.Minute), PlayerID: 8},
	}
	for _, e := range events {
		require.NoError(t, m.Write(e))
	}

	restart := t0.Add(time.Hour)
	assert.Equal(t, 1, m.CloseOpen(restart))

	done, ok := m.Game("done")
	require.True(t, ok)
	assert.Equal(t, t0.Add(2*time.Second), done.End)
	assert.Equal(t, t0.Add(time.Second), done.Players[0].Leave)

	crashed, ok := m.Game("crashed")
	require.True(t, ok)
	assert.False(t, crashed.Running())
	assert.Equal(t, restart, crashed.End)
	require.Len(t, crashed.Players, 2)
	assert.Equal(t, restart, crashed.Players[0].Leave)
	assert.Equal(t, t0.Add(2*time.Minute), crashed.Players[1].Leave)

	assert.Zero(t, m.CloseOpen(restart.Add(time.Hour)))
}

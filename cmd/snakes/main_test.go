package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zucenko/snakes/model"
	"github.com/zucenko/snakes/recorder"
)

func TestSummary(t *testing.T) {
	snap := model.Snapshot{
		Size:  20,
		Walls: map[int]model.Wall{1: {ID: 1}},
		Snakes: map[int]model.Snake{
			3:  {ID: 3, Name: "bot", HighestScoreSeen: 9},
			42: {ID: 42, Name: "Ada", Body: []model.Point2D{{X: 2, Y: 3}}, Score: 4, HighestScoreSeen: 4},
		},
	}
	fields := summary(snap, 42)
	assert.Equal(t, 20, fields["size"])
	assert.Equal(t, 2, fields["snakes"])
	assert.Equal(t, 4, fields["score"])
	assert.Equal(t, model.Point2D{X: 2, Y: 3}, fields["head"])
	assert.Equal(t, "bot", fields["leader"])
}

func TestRestoreJournalEndsUnfinishedGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	file, err := os.Create(path)
	require.NoError(t, err)

	t0 := time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)
	journal := recorder.NewJournal(file, 0)
	for _, e := range []recorder.Event{
		{Type: recorder.EventGameStarted, Game: "g1", Time: t0},
		{Type: recorder.EventPlayerJoined, Game: "g1", Time: t0.Add(time.Second), PlayerID: 42, Name: "Ada"},
		{Type: recorder.EventPlayerScore, Game: "g1", Time: t0.Add(2 * time.Second), PlayerID: 42, Score: 6},
	} {
		require.NoError(t, journal.Write(e))
	}
	require.NoError(t, journal.Close(context.Background()))
	require.NoError(t, file.Close())

	mem := recorder.NewMemory()
	restart := t0.Add(time.Hour)
	restoreJournal(path, mem, restart)

	g, ok := mem.Game("g1")
	require.True(t, ok)
	assert.False(t, g.Running())
	assert.Equal(t, restart, g.End)
	require.Len(t, g.Players, 1)
	assert.Equal(t, 6, g.Players[0].MaxScore)
	assert.False(t, g.Players[0].Connected())
	assert.Equal(t, restart, g.Players[0].Leave)
}

func TestRestoreJournalMissingFile(t *testing.T) {
	mem := recorder.NewMemory()
	restoreJournal(filepath.Join(t.TempDir(), "absent.jsonl"), mem, time.Now())
	assert.Empty(t, mem.Games())
}

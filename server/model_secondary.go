package server

import (
	"fmt"

	"github.com/zucenko/snakes/client"
	"github.com/zucenko/snakes/model"
)

const HTTP_SERVER_ERR = 503

func (gss GameSessionState) Name() string {
	switch gss {
	case GS_NEW:
		return "GS_NEW"
	case GS_PLAY:
		return "GS_PLAY"
	case GS_OVER:
		return "GS_OVER"
	default:
		return fmt.Sprintf("n/a:%d", gss)
	}
}

func (ps PlayerSessionState) Name() string {
	switch ps {
	case PS_NEW:
		return "NEW"
	case PS_PLAY:
		return "PLAY"
	case PS_OVER:
		return "OVER"
	default:
		return "N/A"
	}
}

type PlayerConnectRequest struct {
	Conn     client.Transport
	Name     string
	Remote   string
	GameOver chan struct{}
}

type PlayerEvent struct {
	Player    int
	Direction model.Direction
}

var headings = map[model.Direction]model.Point2D{
	model.DirUp:    {X: 0, Y: -1},
	model.DirDown:  {X: 0, Y: 1},
	model.DirLeft:  {X: -1, Y: 0},
	model.DirRight: {X: 1, Y: 0},
}

// wrap keeps a coordinate inside [0, size).
func wrap(v, size int) int {
	return ((v % size) + size) % size
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Direction string

const (
	DirNone  Direction = "none"
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

var Directions = []Direction{DirNone, DirUp, DirDown, DirLeft, DirRight}

func (d Direction) Valid() bool {
	for _, known := range Directions {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDirection accepts a direction keyword in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

// MoveCommand is the only record the client sends after the handshake.
type MoveCommand struct {
	Moving Direction `json:"moving" jsonschema:"enum=none,enum=up,enum=down,enum=left,enum=right"`
}

func EncodeMove(d Direction) (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("unknown direction %q", d)
	}
	data, err := json.Marshal(MoveCommand{Moving: d})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

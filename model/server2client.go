package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedMessage marks a record whose discriminator matched but whose body did not decode.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrProtocolViolation marks a record carrying none of the known discriminators.
	ErrProtocolViolation = errors.New("protocol violation")
)

// Discriminator keys, checked in this order.
const (
	KeyWall  = "wall"
	KeySnake = "snake"
	KeyPower = "power"
)

type RecordKind int

const (
	RK_WALL RecordKind = iota + 1
	RK_SNAKE
	RK_POWER
)

func (k RecordKind) Name() string {
	switch k {
	case RK_WALL:
		return "wall"
	case RK_SNAKE:
		return "snake"
	case RK_POWER:
		return "power"
	default:
		return fmt.Sprintf("n/a:%d", k)
	}
}

// Record is one decoded inbound line. Exactly one of Wall, Snake and Powerup is set, matching Kind.
type Record struct {
	Kind    RecordKind
	Wall    *Wall
	Snake   *Snake
	Powerup *Powerup
}

// Decode classifies a bulk/live line by its discriminator key and decodes the matching shape.
func Decode(line string) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Record{}, fmt.Errorf("%w: not a json object: %v", ErrProtocolViolation, err)
	}
	switch {
	case has(fields, KeyWall):
		w := &Wall{}
		if err := decodeBody(line, fields[KeyWall], w); err != nil {
			return Record{}, fmt.Errorf("%w: wall: %v", ErrMalformedMessage, err)
		}
		return Record{Kind: RK_WALL, Wall: w}, nil
	case has(fields, KeySnake):
		s := &Snake{}
		if err := decodeBody(line, fields[KeySnake], s); err != nil {
			return Record{}, fmt.Errorf("%w: snake: %v", ErrMalformedMessage, err)
		}
		return Record{Kind: RK_SNAKE, Snake: s}, nil
	case has(fields, KeyPower):
		p := &Powerup{}
		if err := decodeBody(line, fields[KeyPower], p); err != nil {
			return Record{}, fmt.Errorf("%w: power: %v", ErrMalformedMessage, err)
		}
		return Record{Kind: RK_POWER, Powerup: p}, nil
	}
	return Record{}, fmt.Errorf("%w: no discriminator in %d keys", ErrProtocolViolation, len(fields))
}

// decodeBody requires the discriminator to carry an integer id before decoding the whole line into v.
func decodeBody(line string, id json.RawMessage, v interface{}) error {
	if strings.TrimSpace(string(id)) == "null" {
		return errors.New("null id")
	}
	var n int
	if err := json.Unmarshal(id, &n); err != nil {
		return fmt.Errorf("id: %v", err)
	}
	return json.Unmarshal([]byte(line), v)
}

// DecodeScalar parses one of the integer handshake lines.
func DecodeScalar(line string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(line))
}

func has(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

// Encode renders a Wall, Snake or Powerup as one outbound line, the way the arena server sends it.
func Encode(record interface{}) (string, error) {
	switch record.(type) {
	case Wall, *Wall, Snake, *Snake, Powerup, *Powerup:
	default:
		return "", fmt.Errorf("%w: cannot encode %T", ErrProtocolViolation, record)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

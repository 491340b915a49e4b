package client

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection covers transport failures. It ends the session.
	ErrConnection = errors.New("connection error")
	// ErrHandshake covers a missing or malformed player id or arena size. It ends the session.
	ErrHandshake = errors.New("handshake error")
	// ErrAlreadyConnected is returned by Connect on a session that has left SS_DISCONNECTED.
	ErrAlreadyConnected = errors.New("session already connected")
	// ErrDisconnected is returned by Connect when Disconnect closed the session before it finished.
	ErrDisconnected = errors.New("session disconnected")
)

func (ss SessionState) Name() string {
	switch ss {
	case SS_DISCONNECTED:
		return "DISCONNECTED"
	case SS_HANDSHAKING:
		return "HANDSHAKING"
	case SS_AWAITING_WALLS:
		return "AWAITING_WALLS"
	case SS_LIVE:
		return "LIVE"
	case SS_CLOSED:
		return "CLOSED"
	default:
		return fmt.Sprintf("n/a:%d", ss)
	}
}

func (ss SessionState) String() string {
	return ss.Name()
}

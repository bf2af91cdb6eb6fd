package plugin

import "errors"

var (
	ErrAlreadyStarted    = errors.New("plugin already started")
	ErrUnexpectedPayload = errors.New("unexpected event payload")
	ErrUnsafeName        = errors.New("player name cannot be quoted on the console")
	ErrNonFiniteTarget   = errors.New("teleport target is not finite")
)

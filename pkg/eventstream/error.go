package eventstream

import "errors"

var (
	// ErrNilEvent is returned when a publisher is handed a nil event.
	ErrNilEvent = errors.New("nil event")
)

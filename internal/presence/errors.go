package presence

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownSender    = errors.New("sender has no registered identity")
	ErrUnknownSession   = errors.New("unknown session")
)

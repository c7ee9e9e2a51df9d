package transport

import "errors"

var (
	ErrKindMismatch = errors.New("media kind mismatch")
	ErrNoMedia      = errors.New("no media stream track")
)

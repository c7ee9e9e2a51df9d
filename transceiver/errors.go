package transceiver

import "errors"

var (
	// ErrInvalidHandle is returned by operations on a nil or closed
	// transceiver.
	ErrInvalidHandle = errors.New("invalid transceiver handle")

	// ErrInvalidName is returned at construction time for a malformed
	// transceiver name, before any state is created.
	ErrInvalidName = errors.New("invalid transceiver name")

	// ErrInvalidOperation is returned when the underlying media engine
	// refuses an operation, or when a session-driven call contradicts the
	// current state. The failed operation leaves no partial state behind.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrPairingMissing is returned when decoding an empty stream ID: the
	// remote track carried no pairing information at all.
	ErrPairingMissing = errors.New("no pairing info in stream ID")

	// ErrPairingMalformed is returned when a stream ID carries something,
	// but not a valid pairing token. The remote peer is not running
	// compatible pairing logic; guessing a media line index instead would
	// pair tracks to the wrong transceivers.
	ErrPairingMalformed = errors.New("malformed pairing stream ID")
)

package transceiver

import (
	"fmt"

	"github.com/pion/webrtc/v3"
)

// Direction is the direction the local side wants for a media line.
type Direction int

const (
	DirectionInactive Direction = iota
	DirectionSendOnly
	DirectionRecvOnly
	DirectionSendRecv
)

// OptDirection is a negotiated direction. Unlike Direction it has a NotSet
// state for transceivers that have not gone through a negotiation yet.
type OptDirection int

const (
	OptDirectionNotSet OptDirection = iota
	OptDirectionInactive
	OptDirectionSendOnly
	OptDirectionRecvOnly
	OptDirectionSendRecv
)

// FromSendRecv derives a direction from raw sender and receiver presence.
func FromSendRecv(send bool, recv bool) Direction {
	switch {
	case send && recv:
		return DirectionSendRecv
	case send:
		return DirectionSendOnly
	case recv:
		return DirectionRecvOnly
	default:
		return DirectionInactive
	}
}

// OptFromSendRecv is FromSendRecv widened into an OptDirection.
func OptFromSendRecv(send bool, recv bool) OptDirection {
	return FromSendRecv(send, recv).Opt()
}

// Send reports whether the direction includes sending.
func (d Direction) Send() bool {
	return d == DirectionSendOnly || d == DirectionSendRecv
}

// Recv reports whether the direction includes receiving.
func (d Direction) Recv() bool {
	return d == DirectionRecvOnly || d == DirectionSendRecv
}

// Opt widens the direction into an OptDirection. The conversion is
// lossless: both encodings share the same four negotiable states.
func (d Direction) Opt() OptDirection {
	switch d {
	case DirectionSendOnly:
		return OptDirectionSendOnly
	case DirectionRecvOnly:
		return OptDirectionRecvOnly
	case DirectionSendRecv:
		return OptDirectionSendRecv
	default:
		return OptDirectionInactive
	}
}

// Direction narrows an OptDirection. The second return value is false for
// OptDirectionNotSet.
func (d OptDirection) Direction() (Direction, bool) {
	switch d {
	case OptDirectionInactive:
		return DirectionInactive, true
	case OptDirectionSendOnly:
		return DirectionSendOnly, true
	case OptDirectionRecvOnly:
		return DirectionRecvOnly, true
	case OptDirectionSendRecv:
		return DirectionSendRecv, true
	default:
		return DirectionInactive, false
	}
}

func (d Direction) String() string {
	switch d {
	case DirectionInactive:
		return "inactive"
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionSendRecv:
		return "sendrecv"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d OptDirection) String() string {
	if dir, ok := d.Direction(); ok {
		return dir.String()
	}

	return "notset"
}

// RTP converts the direction to the pion encoding.
func (d Direction) RTP() webrtc.RTPTransceiverDirection {
	switch d {
	case DirectionSendOnly:
		return webrtc.RTPTransceiverDirectionSendonly
	case DirectionRecvOnly:
		return webrtc.RTPTransceiverDirectionRecvonly
	case DirectionSendRecv:
		return webrtc.RTPTransceiverDirectionSendrecv
	default:
		return webrtc.RTPTransceiverDirectionInactive
	}
}

// DirectionFromRTP converts a pion direction. The second return value is
// false when the pion value is unknown, which the caller must treat as "no
// value": a native transceiver reports it before the first negotiation.
func DirectionFromRTP(d webrtc.RTPTransceiverDirection) (Direction, bool) {
	switch d {
	case webrtc.RTPTransceiverDirectionInactive:
		return DirectionInactive, true
	case webrtc.RTPTransceiverDirectionSendonly:
		return DirectionSendOnly, true
	case webrtc.RTPTransceiverDirectionRecvonly:
		return DirectionRecvOnly, true
	case webrtc.RTPTransceiverDirectionSendrecv:
		return DirectionSendRecv, true
	default:
		return DirectionInactive, false
	}
}

// OptDirectionFromRTP converts a pion direction, mapping the unknown value
// to OptDirectionNotSet.
func OptDirectionFromRTP(d webrtc.RTPTransceiverDirection) OptDirection {
	if dir, ok := DirectionFromRTP(d); ok {
		return dir.Opt()
	}

	return OptDirectionNotSet
}

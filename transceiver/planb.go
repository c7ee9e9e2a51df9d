package transceiver

import (
	"github.com/juju/errors"
	"github.com/rtckit/mediabridge/transport"
)

// planBState emulates a transceiver on a Plan B session. Plan B signaling
// has no transceiver object: the presence of an RTP sender/receiver is
// what encodes direction on the wire.
type planBState struct {
	// sender exists iff the last sender sync decided the transceiver
	// should be sending.
	sender transport.RTPSender

	// receiver exists iff the session is receiving on this media line.
	receiver transport.RTPReceiver

	// senderTrack is the local media queued for the sender. It is kept
	// separate from the sender so that hot-swapping tracks neither creates
	// a sender nor changes direction, matching Unified Plan track swaps
	// not generating a renegotiation.
	senderTrack transport.MediaStreamTrack
}

func (p *planBState) setTrack(media transport.MediaStreamTrack) error {
	if p.sender != nil {
		if err := p.sender.SetTrack(media); err != nil {
			return errors.Trace(err)
		}
	}

	p.senderTrack = media

	return nil
}

// SyncSender reconciles RTP sender existence with whether the desired
// direction wants to send. The session layer computes needed from the
// desired direction and calls this once the renegotiation armed by
// SetDirection completes. Creating a sender attaches any pending local
// track immediately. Plan B only.
func (t *Transceiver) SyncSender(needed bool, streamID string) error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.Annotatef(ErrInvalidHandle, "sync sender on closed transceiver %s", t.name)
	}

	if t.planB == nil {
		return errors.Annotatef(ErrInvalidOperation,
			"sync sender on Unified Plan transceiver %s", t.name)
	}

	switch {
	case needed && t.planB.sender == nil:
		// A trackless sender still produces a send offer, which is the
		// whole point: sender existence, not track content, drives Plan B
		// negotiation.
		sender, err := t.session.CreateSender(t.kind, streamID)
		if err != nil {
			return errors.Annotatef(err, "create %s sender for transceiver %s", t.kind, t.name)
		}

		if t.planB.senderTrack != nil {
			if err := sender.SetTrack(t.planB.senderTrack); err != nil {
				// The sender must not survive a failed attach: it would
				// negotiate a send direction for a track that was reported
				// as failed, and a retry would find it present and no-op.
				if removeErr := t.session.RemoveSender(sender); removeErr != nil {
					t.log.WithError(removeErr).Error("Failed to remove sender after track attach failure")
				}

				return errors.Annotatef(ErrInvalidOperation,
					"attach pending track to new sender of transceiver %s: %s", t.name, err)
			}
		}

		t.planB.sender = sender

	case !needed && t.planB.sender != nil:
		if err := t.session.RemoveSender(t.planB.sender); err != nil {
			return errors.Annotatef(err, "remove sender of transceiver %s", t.name)
		}

		t.planB.sender = nil
	}

	return nil
}

// SetReceiver records the RTP receiver created (or nil, removed) by the
// session as a side effect of negotiation. Plan B only.
func (t *Transceiver) SetReceiver(receiver transport.RTPReceiver) error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.Annotatef(ErrInvalidHandle, "set receiver on closed transceiver %s", t.name)
	}

	if t.planB == nil {
		return errors.Annotatef(ErrInvalidOperation,
			"set receiver on Unified Plan transceiver %s", t.name)
	}

	t.planB.receiver = receiver

	return nil
}

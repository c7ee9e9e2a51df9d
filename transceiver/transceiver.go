package transceiver

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/pion/webrtc/v3"
	"github.com/rtckit/mediabridge/transport"
	"github.com/sirupsen/logrus"
)

// Session is the peer-connection-equivalent object owning a transceiver.
// The sender methods are only used by Plan B emulation; a Unified Plan
// session never receives those calls. Session methods must not call back
// into the transceiver.
type Session interface {
	// OnRenegotiationNeeded signals that a new offer/answer round is
	// required. Plan B has no native object whose direction change could
	// raise this, so the transceiver raises it manually.
	OnRenegotiationNeeded()

	// CreateSender adds an RTP sender without a track to the session.
	CreateSender(kind transport.MediaKind, streamID string) (transport.RTPSender, error)

	// RemoveSender removes an RTP sender from the session.
	RemoveSender(sender transport.RTPSender) error
}

// RTPTransceiver is the native transceiver object of a Unified Plan
// session. Directions use the pion encoding; CurrentDirection reports the
// unknown zero value before the first negotiation completes.
type RTPTransceiver interface {
	Direction() webrtc.RTPTransceiverDirection
	CurrentDirection() webrtc.RTPTransceiverDirection
	SetDirection(direction webrtc.RTPTransceiverDirection) error
	Sender() transport.RTPSender
	Receiver() transport.RTPReceiver
}

type Params struct {
	Log     *logrus.Entry
	Session Session
	Kind    transport.MediaKind

	// MLineIndex is the media line the transceiver is created for, or -1
	// when not yet associated.
	MLineIndex int

	// Name identifies the transceiver in diagnostics and in Plan B
	// stream-ID pairing. Must not contain whitespace. Generated when
	// empty.
	Name string

	// StreamIDs are the caller-supplied stream IDs, fixed for the
	// transceiver's lifetime.
	StreamIDs []string

	// Direction is the initial desired direction.
	Direction Direction
}

// Transceiver reconciles one media line's send/receive state across the
// two SDP semantics. With Unified Plan it wraps the session's native
// transceiver object; with Plan B it emulates one from sender/receiver
// presence. Exactly one of the two backings exists, fixed at construction.
type Transceiver struct {
	log       *logrus.Entry
	session   Session
	kind      transport.MediaKind
	name      string
	streamIDs []string

	mu          sync.Mutex
	mLineIndex  int
	desired     Direction
	negotiated  OptDirection
	localTrack  transport.LocalTrack
	remoteTrack transport.RemoteTrack
	closed      bool

	// unified is non-nil iff the session uses Unified Plan.
	unified RTPTransceiver
	// planB is non-nil iff the session uses Plan B.
	planB *planBState

	cbMu         sync.Mutex
	associated   func(mLineIndex int)
	stateUpdated func(update StateUpdate)
}

var _ transport.Owner = &Transceiver{}

// NewUnifiedPlan creates a transceiver wrapping a native Unified Plan
// transceiver object.
func NewUnifiedPlan(params Params, native RTPTransceiver) (*Transceiver, error) {
	if native == nil {
		return nil, errors.Annotatef(ErrInvalidHandle, "nil native transceiver")
	}

	t, err := newTransceiver(params)
	if err != nil {
		return nil, errors.Trace(err)
	}

	t.unified = native

	prometheusTransceiversTotal.WithLabelValues("unified").Inc()

	return t, nil
}

// NewPlanB creates a transceiver emulating itself on top of a Plan B
// session, which has no transceiver primitive of its own.
func NewPlanB(params Params) (*Transceiver, error) {
	t, err := newTransceiver(params)
	if err != nil {
		return nil, errors.Trace(err)
	}

	t.planB = &planBState{}

	prometheusTransceiversTotal.WithLabelValues("plan_b").Inc()

	return t, nil
}

func newTransceiver(params Params) (*Transceiver, error) {
	if params.Session == nil {
		return nil, errors.Annotatef(ErrInvalidHandle, "nil session")
	}

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("%s_transceiver_%s", params.Kind, uuid.NewString())
	}

	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return nil, errors.Annotatef(ErrInvalidName, "%q contains whitespace", name)
	}

	log := params.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	log = log.WithField("transceiver", name)

	mLineIndex := params.MLineIndex
	if mLineIndex < 0 {
		mLineIndex = -1
	}

	streamIDs := make([]string, len(params.StreamIDs))
	copy(streamIDs, params.StreamIDs)

	return &Transceiver{
		log:        log,
		session:    params.Session,
		kind:       params.Kind,
		name:       name,
		streamIDs:  streamIDs,
		mLineIndex: mLineIndex,
		desired:    params.Direction,
		negotiated: OptDirectionNotSet,
	}, nil
}

func (t *Transceiver) Name() string {
	return t.name
}

func (t *Transceiver) MediaKind() transport.MediaKind {
	return t.kind
}

// StreamIDs returns a copy of the construction-time stream IDs.
func (t *Transceiver) StreamIDs() []string {
	streamIDs := make([]string, len(t.streamIDs))
	copy(streamIDs, t.streamIDs)

	return streamIDs
}

// MLineIndex returns the associated media line index, or -1 before
// association.
func (t *Transceiver) MLineIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.mLineIndex
}

func (t *Transceiver) IsUnifiedPlan() bool {
	return t.unified != nil
}

func (t *Transceiver) IsPlanB() bool {
	return t.planB != nil
}

// HandleAssociated registers the handler invoked when the transceiver is
// first associated with a media line. The handler runs with no transceiver
// lock held and may call back into the transceiver.
func (t *Transceiver) HandleAssociated(handler func(mLineIndex int)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()

	t.associated = handler
}

// HandleStateUpdated registers the handler invoked after every
// state-updated event. Same locking contract as HandleAssociated.
func (t *Transceiver) HandleStateUpdated(handler func(update StateUpdate)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()

	t.stateUpdated = handler
}

func (t *Transceiver) DesiredDirection() Direction {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.desired
}

func (t *Transceiver) NegotiatedDirection() OptDirection {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.negotiated
}

// SetDirection changes the desired direction for the next negotiation
// round. Setting the current value is a no-op and fires no event. On
// success a state-updated event fires synchronously, before any
// renegotiation: observers learn the desired direction immediately, while
// the negotiated direction only moves once the session layer calls
// OnSessionDescriptionUpdated.
func (t *Transceiver) SetDirection(direction Direction) error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidHandle, "set direction on closed transceiver %s", t.name)
	}

	if direction == t.desired {
		t.mu.Unlock()
		return nil
	}

	planB := t.unified == nil

	if !planB {
		// The native object raises renegotiation-needed itself.
		if err := t.unified.SetDirection(direction.RTP()); err != nil {
			t.mu.Unlock()
			return errors.Annotatef(ErrInvalidOperation,
				"set direction %s on native transceiver %s: %s", direction, t.name, err)
		}
	}

	t.desired = direction
	update := StateUpdate{
		Reason:     ReasonDirectionSet,
		Negotiated: t.negotiated,
		Desired:    t.desired,
	}
	t.mu.Unlock()

	if planB {
		// Plan B has no object to push the direction into: raise the
		// renegotiation-needed signal manually for parity.
		t.session.OnRenegotiationNeeded()
		prometheusRenegotiationsTotal.Inc()
	}

	t.log.WithField("direction", direction.String()).Debug("Desired direction set")

	t.fireStateUpdated(update)

	return nil
}

// SetLocalTrack assigns, replaces or clears (nil) the local track. The
// desired direction never changes and no renegotiation is requested: track
// assignment and direction are orthogonal. The previous track is detached
// strictly before the new one is attached, so no observer can see both
// bound at once.
func (t *Transceiver) SetLocalTrack(track transport.LocalTrack) error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidHandle, "set local track on closed transceiver %s", t.name)
	}

	if track == t.localTrack {
		t.mu.Unlock()
		return nil
	}

	if track != nil && track.Kind() != t.kind {
		t.mu.Unlock()
		return errors.Annotatef(transport.ErrKindMismatch,
			"%s track on %s transceiver %s", track.Kind(), t.kind, t.name)
	}

	var media transport.MediaStreamTrack
	if track != nil {
		media = track.Media()
	}

	var sender transport.RTPSender

	if t.unified != nil {
		sender = t.unified.Sender()
		if err := sender.SetTrack(media); err != nil {
			t.mu.Unlock()
			t.log.WithError(err).Error("Failed to set local track on sender")

			return errors.Annotatef(ErrInvalidOperation,
				"set track on sender of transceiver %s: %s", t.name, err)
		}
	} else {
		if err := t.planB.setTrack(media); err != nil {
			t.mu.Unlock()
			t.log.WithError(err).Error("Failed to set local track on Plan B sender")

			return errors.Annotatef(ErrInvalidOperation,
				"set track on Plan B sender of transceiver %s: %s", t.name, err)
		}

		sender = t.planB.sender
	}

	prev := t.localTrack
	t.localTrack = track
	t.mu.Unlock()

	if prev != nil {
		prev.RemovedFromTransceiver(t, sender)
	}

	if track != nil {
		track.AddedToTransceiver(t, sender)
	}

	return nil
}

// LocalTrack returns the bound local track, or nil.
func (t *Transceiver) LocalTrack() transport.LocalTrack {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.localTrack
}

// RemoteTrack returns the bound remote track, or nil.
func (t *Transceiver) RemoteTrack() transport.RemoteTrack {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.remoteTrack
}

// LocalAudioTrack returns the local track when this is an audio
// transceiver with a bound audio track, nil otherwise. The kind check lets
// one opaque handle be queried from either the audio or video accessor.
func (t *Transceiver) LocalAudioTrack() *transport.LocalAudioTrack {
	if t.kind != transport.MediaKindAudio {
		return nil
	}

	track, _ := t.LocalTrack().(*transport.LocalAudioTrack)

	return track
}

func (t *Transceiver) LocalVideoTrack() *transport.LocalVideoTrack {
	if t.kind != transport.MediaKindVideo {
		return nil
	}

	track, _ := t.LocalTrack().(*transport.LocalVideoTrack)

	return track
}

func (t *Transceiver) RemoteAudioTrack() *transport.RemoteAudioTrack {
	if t.kind != transport.MediaKindAudio {
		return nil
	}

	track, _ := t.RemoteTrack().(*transport.RemoteAudioTrack)

	return track
}

func (t *Transceiver) RemoteVideoTrack() *transport.RemoteVideoTrack {
	if t.kind != transport.MediaKindVideo {
		return nil
	}

	track, _ := t.RemoteTrack().(*transport.RemoteVideoTrack)

	return track
}

// OnLocalTrackAdded binds a local track created by the session as a side
// effect of negotiation. Idempotent when called again with the same track.
func (t *Transceiver) OnLocalTrackAdded(track transport.LocalTrack) error {
	if t == nil || track == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	if track.Kind() != t.kind {
		return errors.Annotatef(transport.ErrKindMismatch,
			"%s track on %s transceiver %s", track.Kind(), t.kind, t.name)
	}

	t.mu.Lock()

	if t.localTrack == track {
		t.mu.Unlock()
		return nil
	}

	if t.localTrack != nil {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidOperation,
			"local track already bound to transceiver %s", t.name)
	}

	t.localTrack = track
	sender := t.currentSenderLocked()
	t.mu.Unlock()

	track.AddedToTransceiver(t, sender)

	return nil
}

// OnLocalTrackRemoved unbinds a local track torn down by the session.
// A no-op when no track is bound; an already-removed track may be removed
// again.
func (t *Transceiver) OnLocalTrackRemoved(track transport.LocalTrack) error {
	if t == nil || track == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()

	if t.localTrack == nil {
		t.mu.Unlock()
		return nil
	}

	if t.localTrack != track {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidOperation,
			"removing local track not bound to transceiver %s", t.name)
	}

	t.localTrack = nil
	sender := t.currentSenderLocked()
	t.mu.Unlock()

	track.RemovedFromTransceiver(t, sender)

	return nil
}

// OnRemoteTrackAdded binds the remote track created by the session when
// negotiation starts receiving. Idempotent when called again with the same
// track.
func (t *Transceiver) OnRemoteTrackAdded(track transport.RemoteTrack) error {
	if t == nil || track == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	if track.Kind() != t.kind {
		return errors.Annotatef(transport.ErrKindMismatch,
			"%s track on %s transceiver %s", track.Kind(), t.kind, t.name)
	}

	t.mu.Lock()

	if t.remoteTrack == track {
		t.mu.Unlock()
		return nil
	}

	if t.remoteTrack != nil {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidOperation,
			"remote track already bound to transceiver %s", t.name)
	}

	t.remoteTrack = track
	t.mu.Unlock()

	track.AddedToTransceiver(t)

	return nil
}

// OnRemoteTrackRemoved unbinds the remote track when the underlying track
// is torn down. A no-op when no track is bound; removing a different track
// than the bound one is an error.
func (t *Transceiver) OnRemoteTrackRemoved(track transport.RemoteTrack) error {
	if t == nil || track == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()

	if t.remoteTrack == nil {
		t.mu.Unlock()
		return nil
	}

	if t.remoteTrack != track {
		t.mu.Unlock()
		return errors.Annotatef(ErrInvalidOperation,
			"removing remote track not bound to transceiver %s", t.name)
	}

	t.remoteTrack = nil
	t.mu.Unlock()

	track.RemovedFromTransceiver(t)

	return nil
}

// HasSender reports whether sender is the transceiver's current RTP
// sender. Used by the session layer to route sender-level events.
func (t *Transceiver) HasSender(sender transport.RTPSender) bool {
	if t == nil || sender == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentSenderLocked() == sender
}

// HasReceiver reports whether receiver is the transceiver's current RTP
// receiver.
func (t *Transceiver) HasReceiver(receiver transport.RTPReceiver) bool {
	if t == nil || receiver == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unified != nil {
		return t.unified.Receiver() == receiver
	}

	return t.planB.receiver == receiver
}

func (t *Transceiver) currentSenderLocked() transport.RTPSender {
	if t.unified != nil {
		return t.unified.Sender()
	}

	return t.planB.sender
}

// OnAssociated is called by the session exactly once, when the transceiver
// first appears in a negotiated session description. Transceivers are not
// recycled: the media line index transitions once from -1 and never moves
// again.
func (t *Transceiver) OnAssociated(mLineIndex int) error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	if mLineIndex < 0 {
		return errors.Annotatef(ErrInvalidOperation,
			"associate transceiver %s with negative media line index %d", t.name, mLineIndex)
	}

	t.mu.Lock()

	if t.mLineIndex >= 0 {
		prev := t.mLineIndex
		t.mu.Unlock()

		return errors.Annotatef(ErrInvalidOperation,
			"transceiver %s already associated with media line %d", t.name, prev)
	}

	t.mLineIndex = mLineIndex
	t.mu.Unlock()

	t.log.WithField("m_line_index", mLineIndex).Info("Transceiver associated with media line")

	t.cbMu.Lock()
	handler := t.associated
	t.cbMu.Unlock()

	if handler != nil {
		handler(mLineIndex)
	}

	return nil
}

// OnSessionDescriptionUpdated is called by the session layer after every
// applied local or remote description, and with forced=true right after
// creation to seed listeners with a consistent snapshot. It recomputes the
// negotiated direction, picks up externally-driven desired-direction
// changes on the native object, and fires a state-updated event only when
// something actually moved (or when forced).
func (t *Transceiver) OnSessionDescriptionUpdated(remote bool, forced bool) {
	if t == nil {
		return
	}

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return
	}

	changed := false

	if t.unified != nil {
		// The first negotiation may complete while the native object's
		// current direction is still unset; the negotiated direction then
		// keeps its previous value.
		if negotiated, ok := DirectionFromRTP(t.unified.CurrentDirection()); ok {
			if newValue := negotiated.Opt(); newValue != t.negotiated {
				t.negotiated = newValue
				changed = true
			}
		}

		if desired, ok := DirectionFromRTP(t.unified.Direction()); ok {
			if desired != t.desired {
				t.desired = desired
				changed = true
			}
		}
	} else {
		// Plan B: sender/receiver presence is all there is. There is no
		// native desired direction to drift.
		negotiated := OptFromSendRecv(t.planB.sender != nil, t.planB.receiver != nil)
		if negotiated != t.negotiated {
			t.negotiated = negotiated
			changed = true
		}
	}

	reason := ReasonLocalDescApplied
	if remote {
		reason = ReasonRemoteDescApplied
	}

	update := StateUpdate{
		Reason:     reason,
		Negotiated: t.negotiated,
		Desired:    t.desired,
	}
	t.mu.Unlock()

	if changed || forced {
		t.fireStateUpdated(update)
	}
}

// Close detaches both tracks and invalidates the transceiver. It is called
// by the owning session during teardown; tracks must be detached before
// their own destruction completes. Idempotent.
func (t *Transceiver) Close() error {
	if t == nil {
		return errors.Trace(ErrInvalidHandle)
	}

	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return nil
	}

	t.closed = true

	local := t.localTrack
	t.localTrack = nil

	remote := t.remoteTrack
	t.remoteTrack = nil

	sender := t.currentSenderLocked()
	t.mu.Unlock()

	if local != nil {
		local.RemovedFromTransceiver(t, sender)
	}

	if remote != nil {
		remote.RemovedFromTransceiver(t)
	}

	return nil
}

// fireStateUpdated delivers a state snapshot taken by the mutating
// operation inside its own critical section. Building the snapshot here
// instead would let a concurrent description update slip in between the
// mutation and the event.
func (t *Transceiver) fireStateUpdated(update StateUpdate) {
	t.cbMu.Lock()
	handler := t.stateUpdated
	t.cbMu.Unlock()

	prometheusStateUpdatesTotal.WithLabelValues(update.Reason.String()).Inc()

	if handler != nil {
		handler(update)
	}
}

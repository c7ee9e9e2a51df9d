package transport

import "sync"

// MediaStreamTrack is the media engine's raw track object. The engine owns
// encoding and transmission; this package only forwards the enabled flag,
// which degrades media to silence or black frames without affecting
// negotiation.
type MediaStreamTrack interface {
	ID() string
	Kind() MediaKind
	Enabled() bool
	SetEnabled(enabled bool)
}

// RTPSender is the outgoing media endpoint a transceiver wraps or emulates.
type RTPSender interface {
	SetTrack(track MediaStreamTrack) error
}

// RTPReceiver is the incoming media endpoint.
type RTPReceiver interface {
	Track() MediaStreamTrack
}

// Owner is the view of a transceiver that a bound track keeps. The
// back-reference is non-owning: it is set on attach and nulled on detach by
// the transceiver, never by the track itself.
type Owner interface {
	Name() string
	MediaKind() MediaKind
}

type Track interface {
	Name() string
	Kind() MediaKind
	Media() MediaStreamTrack
	Enabled() bool
	SetEnabled(enabled bool)

	// Transceiver returns the owning transceiver, or nil when detached.
	Transceiver() Owner

	// HandleBinding registers a handler invoked after every attach and
	// detach. The handler runs outside the track lock and may call back
	// into the track or its transceiver.
	HandleBinding(handler func(event BindingEvent))
}

// LocalTrack is an outgoing track. It may exist detached, before it is
// assigned to a transceiver.
type LocalTrack interface {
	Track

	AddedToTransceiver(owner Owner, sender RTPSender)
	RemovedFromTransceiver(owner Owner, sender RTPSender)
}

// RemoteTrack is an incoming track. It is bound to a transceiver by the
// session as soon as it exists, and detached only during teardown.
type RemoteTrack interface {
	Track

	AddedToTransceiver(owner Owner)
	RemovedFromTransceiver(owner Owner)
}

type BindingEventType int

const (
	BindingEventAdded BindingEventType = iota + 1
	BindingEventRemoved
)

// BindingEvent describes a track being attached to or detached from a
// transceiver. Sender is only set for local tracks when an RTP sender
// existed at the time of the change.
type BindingEvent struct {
	Type   BindingEventType
	Owner  Owner
	Sender RTPSender
}

// trackState is the shared shape of the four concrete track variants.
type trackState struct {
	mu      sync.Mutex
	name    string
	media   MediaStreamTrack
	owner   Owner
	handler func(event BindingEvent)
}

func (t *trackState) Name() string {
	return t.name
}

func (t *trackState) Media() MediaStreamTrack {
	return t.media
}

func (t *trackState) Enabled() bool {
	return t.media.Enabled()
}

func (t *trackState) SetEnabled(enabled bool) {
	t.media.SetEnabled(enabled)
}

func (t *trackState) Transceiver() Owner {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.owner
}

func (t *trackState) HandleBinding(handler func(event BindingEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handler = handler
}

func (t *trackState) bind(owner Owner, sender RTPSender) {
	t.mu.Lock()
	t.owner = owner
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(BindingEvent{
			Type:   BindingEventAdded,
			Owner:  owner,
			Sender: sender,
		})
	}
}

func (t *trackState) unbind(owner Owner, sender RTPSender) {
	t.mu.Lock()
	t.owner = nil
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(BindingEvent{
			Type:   BindingEventRemoved,
			Owner:  owner,
			Sender: sender,
		})
	}
}

package transport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// LocalAudioTrack is an outgoing audio track.
type LocalAudioTrack struct {
	trackState
}

var _ LocalTrack = &LocalAudioTrack{}

func NewLocalAudioTrack(media MediaStreamTrack, name string) (*LocalAudioTrack, error) {
	name, err := trackName(media, name, MediaKindAudio)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &LocalAudioTrack{trackState: trackState{name: name, media: media}}, nil
}

func (t *LocalAudioTrack) Kind() MediaKind {
	return MediaKindAudio
}

func (t *LocalAudioTrack) AddedToTransceiver(owner Owner, sender RTPSender) {
	t.bind(owner, sender)
}

func (t *LocalAudioTrack) RemovedFromTransceiver(owner Owner, sender RTPSender) {
	t.unbind(owner, sender)
}

// LocalVideoTrack is an outgoing video track.
type LocalVideoTrack struct {
	trackState
}

var _ LocalTrack = &LocalVideoTrack{}

func NewLocalVideoTrack(media MediaStreamTrack, name string) (*LocalVideoTrack, error) {
	name, err := trackName(media, name, MediaKindVideo)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &LocalVideoTrack{trackState: trackState{name: name, media: media}}, nil
}

func (t *LocalVideoTrack) Kind() MediaKind {
	return MediaKindVideo
}

func (t *LocalVideoTrack) AddedToTransceiver(owner Owner, sender RTPSender) {
	t.bind(owner, sender)
}

func (t *LocalVideoTrack) RemovedFromTransceiver(owner Owner, sender RTPSender) {
	t.unbind(owner, sender)
}

// trackName validates the media against the variant's kind and fills in a
// generated name when none was given.
func trackName(media MediaStreamTrack, name string, kind MediaKind) (string, error) {
	if media == nil {
		return "", errors.Trace(ErrNoMedia)
	}

	if media.Kind() != kind {
		return "", errors.Annotatef(ErrKindMismatch,
			"%s track with %s media %q", kind, media.Kind(), media.ID())
	}

	if name == "" {
		name = fmt.Sprintf("%s_track_%s", kind, uuid.NewString())
	}

	return name, nil
}

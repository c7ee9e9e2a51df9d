package transport

import "github.com/juju/errors"

// RemoteAudioTrack is an incoming audio track.
type RemoteAudioTrack struct {
	trackState
}

var _ RemoteTrack = &RemoteAudioTrack{}

func NewRemoteAudioTrack(media MediaStreamTrack, name string) (*RemoteAudioTrack, error) {
	name, err := trackName(media, name, MediaKindAudio)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &RemoteAudioTrack{trackState: trackState{name: name, media: media}}, nil
}

func (t *RemoteAudioTrack) Kind() MediaKind {
	return MediaKindAudio
}

func (t *RemoteAudioTrack) AddedToTransceiver(owner Owner) {
	t.bind(owner, nil)
}

func (t *RemoteAudioTrack) RemovedFromTransceiver(owner Owner) {
	t.unbind(owner, nil)
}

// RemoteVideoTrack is an incoming video track.
type RemoteVideoTrack struct {
	trackState
}

var _ RemoteTrack = &RemoteVideoTrack{}

func NewRemoteVideoTrack(media MediaStreamTrack, name string) (*RemoteVideoTrack, error) {
	name, err := trackName(media, name, MediaKindVideo)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &RemoteVideoTrack{trackState: trackState{name: name, media: media}}, nil
}

func (t *RemoteVideoTrack) Kind() MediaKind {
	return MediaKindVideo
}

func (t *RemoteVideoTrack) AddedToTransceiver(owner Owner) {
	t.bind(owner, nil)
}

func (t *RemoteVideoTrack) RemovedFromTransceiver(owner Owner) {
	t.unbind(owner, nil)
}

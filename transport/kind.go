package transport

import (
	"fmt"

	"github.com/pion/webrtc/v3"
)

// MediaKind tells whether a track or transceiver carries audio or video.
type MediaKind int

const (
	MediaKindAudio MediaKind = iota
	MediaKindVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaKindAudio:
		return "audio"
	case MediaKindVideo:
		return "video"
	default:
		return fmt.Sprintf("MediaKind(%d)", int(k))
	}
}

// RTPCodecType returns the pion codec type matching the media kind.
func (k MediaKind) RTPCodecType() webrtc.RTPCodecType {
	if k == MediaKindVideo {
		return webrtc.RTPCodecTypeVideo
	}

	return webrtc.RTPCodecTypeAudio
}

// MediaKindFromCodecType converts a pion codec type to a MediaKind. The
// second return value is false when the codec type is unknown.
func MediaKindFromCodecType(codecType webrtc.RTPCodecType) (MediaKind, bool) {
	switch codecType {
	case webrtc.RTPCodecTypeAudio:
		return MediaKindAudio, true
	case webrtc.RTPCodecTypeVideo:
		return MediaKindVideo, true
	default:
		return MediaKindAudio, false
	}
}

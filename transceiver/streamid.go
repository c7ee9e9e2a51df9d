package transceiver

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// planBPairingPrefix tags the first entry of an encoded Plan B stream ID.
// Plan B signaling carries no media line identity, so the virtual media
// line index is smuggled through the stream ID, the only free-form string
// field every stream carries.
const planBPairingPrefix = "mrsw#"

// EncodeStreamIDs joins stream IDs into a single semicolon-separated
// string.
func EncodeStreamIDs(streamIDs []string) string {
	return strings.Join(streamIDs, ";")
}

// DecodeStreamIDs splits a semicolon-separated string into stream IDs.
func DecodeStreamIDs(encoded string) []string {
	if encoded == "" {
		return nil
	}

	return strings.Split(encoded, ";")
}

// EncodePairedStreamID builds the single stream ID of a Plan B track: the
// pairing token "mrsw#<mLineIndex>" followed by the original stream IDs.
func EncodePairedStreamID(mLineIndex int, streamIDs []string) string {
	items := make([]string, 0, len(streamIDs)+1)
	items = append(items, planBPairingPrefix+strconv.Itoa(mLineIndex))
	items = append(items, streamIDs...)

	return strings.Join(items, ";")
}

// EncodedStreamIDForPlanB encodes the transceiver's stream IDs with the
// given virtual media line index, for use as the stream ID of its Plan B
// track.
func (t *Transceiver) EncodedStreamIDForPlanB(mLineIndex int) string {
	return EncodePairedStreamID(mLineIndex, t.streamIDs)
}

// PlanBPairing is the transceiver identity reconstructed from an encoded
// stream ID. Name is the raw pairing token, reused as the name of the
// transceiver created for the paired track.
type PlanBPairing struct {
	MLineIndex int
	Name       string
	StreamIDs  []string
}

// DecodePairedStreamID reverses EncodePairedStreamID. An empty input means
// the remote track carried no pairing info (ErrPairingMissing); anything
// else that does not parse means the peer does not speak the pairing
// protocol (ErrPairingMalformed). The two cases stay distinct: a malformed
// ID must never be silently treated as absent.
func DecodePairedStreamID(encoded string) (PlanBPairing, error) {
	pairing := PlanBPairing{MLineIndex: -1}

	if encoded == "" {
		return pairing, errors.Trace(ErrPairingMissing)
	}

	items := strings.Split(encoded, ";")

	name := items[0]
	if len(name) <= len(planBPairingPrefix) || !strings.HasPrefix(name, planBPairingPrefix) {
		prometheusPairingDecodeErrorsTotal.Inc()

		return pairing, errors.Annotatef(ErrPairingMalformed,
			"stream ID %q does not start with %q", encoded, planBPairingPrefix)
	}

	// Only the leading digit run encodes the index; trailing bytes are
	// ignored, matching the lenient integer parse of peer decoders.
	suffix := name[len(planBPairingPrefix):]

	digits := 0
	for digits < len(suffix) && suffix[digits] >= '0' && suffix[digits] <= '9' {
		digits++
	}

	mLineIndex, err := strconv.Atoi(suffix[:digits])
	if digits == 0 || err != nil {
		prometheusPairingDecodeErrorsTotal.Inc()

		return pairing, errors.Annotatef(ErrPairingMalformed,
			"token %q does not encode a valid media line index", name)
	}

	pairing.MLineIndex = mLineIndex
	pairing.Name = name

	if rest := items[1:]; len(rest) > 0 {
		pairing.StreamIDs = append(pairing.StreamIDs, rest...)
	}

	return pairing, nil
}

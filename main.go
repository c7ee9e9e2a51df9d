package main

import (
	"io"
	"os"
	"sync"

	"github.com/juju/errors"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v3"
	"github.com/rtckit/mediabridge/pionlog"
	"github.com/rtckit/mediabridge/transceiver"
	"github.com/rtckit/mediabridge/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/yaml.v2"
)

// The demo drives one audio transceiver through a scripted negotiation
// against an in-process session, in either SDP semantics, and logs every
// state-updated event. It exercises the full wiring without any network.

type Config struct {
	Plan     string `yaml:"plan"`
	LogLevel string `yaml:"log_level"`
}

func initConfig(c *Config) {
	c.Plan = "planb"
	c.LogLevel = "info"
}

func readConfigFile(filename string, c *Config) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "read config file: %s", filename)
	}

	defer f.Close()

	err = readConfigYAML(f, c)

	return errors.Annotatef(err, "read yaml config: %s", filename)
}

func readConfigYAML(reader io.Reader, c *Config) error {
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(c); err != nil {
		return errors.Annotatef(err, "decode yaml")
	}

	return nil
}

func readConfigFromEnv(prefix string, c *Config) {
	if v, ok := os.LookupEnv(prefix + "PLAN"); ok {
		c.Plan = v
	}

	if v, ok := os.LookupEnv(prefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
}

type demoMedia struct {
	id   string
	kind transport.MediaKind

	mu      sync.Mutex
	enabled bool
}

func (m *demoMedia) ID() string {
	return m.id
}

func (m *demoMedia) Kind() transport.MediaKind {
	return m.kind
}

func (m *demoMedia) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.enabled
}

func (m *demoMedia) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = enabled
}

type demoSender struct {
	kind     transport.MediaKind
	streamID string

	mu    sync.Mutex
	track transport.MediaStreamTrack
}

func (s *demoSender) SetTrack(track transport.MediaStreamTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.track = track

	return nil
}

// demoSession is a peer-connection stand-in. It records the renegotiation
// request that a Plan B direction change arms, which a real session layer
// would answer with an offer/answer round.
type demoSession struct {
	log logging.LeveledLogger

	mu             sync.Mutex
	renegotiations int
	senders        []*demoSender
}

func (s *demoSession) OnRenegotiationNeeded() {
	s.mu.Lock()
	s.renegotiations++
	count := s.renegotiations
	s.mu.Unlock()

	s.log.Infof("renegotiation needed (total %d)", count)
}

func (s *demoSession) CreateSender(
	kind transport.MediaKind, streamID string,
) (transport.RTPSender, error) {
	sender := &demoSender{
		kind:     kind,
		streamID: streamID,
	}

	s.mu.Lock()
	s.senders = append(s.senders, sender)
	s.mu.Unlock()

	s.log.Infof("created %s sender for stream %q", kind, streamID)

	return sender, nil
}

func (s *demoSession) RemoveSender(sender transport.RTPSender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, candidate := range s.senders {
		if candidate == sender {
			s.senders = append(s.senders[:i], s.senders[i+1:]...)
			s.log.Infof("removed %s sender", candidate.kind)

			return nil
		}
	}

	return errors.New("sender not found")
}

type demoReceiver struct {
	track transport.MediaStreamTrack
}

func (r *demoReceiver) Track() transport.MediaStreamTrack {
	return r.track
}

type demoNative struct {
	mu        sync.Mutex
	direction webrtc.RTPTransceiverDirection
	current   webrtc.RTPTransceiverDirection
	sender    *demoSender
	receiver  *demoReceiver
}

func newDemoNative() *demoNative {
	return &demoNative{
		direction: webrtc.RTPTransceiverDirectionInactive,
		sender:    &demoSender{kind: transport.MediaKindAudio},
		receiver:  &demoReceiver{},
	}
}

func (n *demoNative) Direction() webrtc.RTPTransceiverDirection {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.direction
}

func (n *demoNative) CurrentDirection() webrtc.RTPTransceiverDirection {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.current
}

func (n *demoNative) SetDirection(direction webrtc.RTPTransceiverDirection) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.direction = direction

	return nil
}

func (n *demoNative) Sender() transport.RTPSender {
	return n.sender
}

func (n *demoNative) Receiver() transport.RTPReceiver {
	return n.receiver
}

// completeNegotiation plays the role of the SDP exchange: the peer answers
// recvonly-less, so a sendrecv request settles at sendonly.
func (n *demoNative) completeNegotiation() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = webrtc.RTPTransceiverDirectionSendonly
}

func run(log *logrus.Entry, c Config) error {
	notifier := transceiver.NewStateNotifier(16)
	defer notifier.Close()

	session := &demoSession{
		log: pionlog.NewFactory(log).NewLogger("session"),
	}

	params := transceiver.Params{
		Log:        log,
		Session:    session,
		Kind:       transport.MediaKindAudio,
		MLineIndex: -1,
		Name:       "demo_audio",
		StreamIDs:  []string{"demo"},
		Direction:  transceiver.DirectionInactive,
	}

	var (
		tr     *transceiver.Transceiver
		native *demoNative
		err    error
	)

	switch c.Plan {
	case "unified":
		native = newDemoNative()
		tr, err = transceiver.NewUnifiedPlan(params, native)
	case "planb":
		tr, err = transceiver.NewPlanB(params)
	default:
		return errors.Errorf("unknown plan %q, want planb or unified", c.Plan)
	}

	if err != nil {
		return errors.Trace(err)
	}

	tr.HandleStateUpdated(notifier.Notify)
	tr.HandleAssociated(func(mLineIndex int) {
		log.WithField("m_line_index", mLineIndex).Info("Associated")
	})

	sub, err := notifier.Subscribe("demo")
	if err != nil {
		return errors.Trace(err)
	}

	drained := make(chan struct{})

	go func() {
		defer close(drained)

		for update := range sub {
			log.WithFields(logrus.Fields{
				"reason":     update.Reason.String(),
				"negotiated": update.Negotiated.String(),
				"desired":    update.Desired.String(),
			}).Info("State updated")
		}
	}()

	// Seed listeners with a consistent snapshot.
	tr.OnSessionDescriptionUpdated(false, true)

	media := &demoMedia{id: "mic0", kind: transport.MediaKindAudio, enabled: true}

	track, err := transport.NewLocalAudioTrack(media, "mic")
	if err != nil {
		return errors.Trace(err)
	}

	if err := tr.SetLocalTrack(track); err != nil {
		return errors.Trace(err)
	}

	if err := tr.SetDirection(transceiver.DirectionSendRecv); err != nil {
		return errors.Trace(err)
	}

	if tr.IsPlanB() {
		streamID := tr.EncodedStreamIDForPlanB(0)

		if err := tr.SyncSender(tr.DesiredDirection().Send(), streamID); err != nil {
			return errors.Trace(err)
		}

		if err := tr.OnAssociated(0); err != nil {
			return errors.Trace(err)
		}

		tr.OnSessionDescriptionUpdated(false, false)

		// The peer answers without a track of its own: no receiver gets
		// created, and the direction settles at sendonly.
		tr.OnSessionDescriptionUpdated(true, false)

		pairing, err := transceiver.DecodePairedStreamID(streamID)
		if err != nil {
			return errors.Trace(err)
		}

		log.WithFields(logrus.Fields{
			"m_line_index": pairing.MLineIndex,
			"stream_ids":   pairing.StreamIDs,
		}).Info("Peer would pair the track from the encoded stream ID")
	} else {
		if err := tr.OnAssociated(0); err != nil {
			return errors.Trace(err)
		}

		native.completeNegotiation()
		tr.OnSessionDescriptionUpdated(true, false)
	}

	log.WithFields(logrus.Fields{
		"desired":    tr.DesiredDirection().String(),
		"negotiated": tr.NegotiatedDirection().String(),
	}).Info("Negotiation round complete")

	if err := tr.Close(); err != nil {
		return errors.Trace(err)
	}

	if err := notifier.Unsubscribe("demo"); err != nil {
		return errors.Trace(err)
	}

	<-drained

	return nil
}

func main() {
	flags := pflag.NewFlagSet("mediabridge-demo", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to YAML config file")
	plan := flags.String("plan", "", "SDP semantics to emulate (planb or unified)")
	logLevel := flags.String("log-level", "", "log level (trace, debug, info, warn, error)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Cause(err) == pflag.ErrHelp {
			os.Exit(1)
		}

		logrus.WithError(err).Error("Failed to parse flags")
		os.Exit(1)
	}

	c := Config{}
	initConfig(&c)

	if *configPath != "" {
		if err := readConfigFile(*configPath, &c); err != nil {
			logrus.WithError(err).Error("Failed to read config")
			os.Exit(1)
		}
	}

	readConfigFromEnv("MEDIABRIDGE_", &c)

	if *plan != "" {
		c.Plan = *plan
	}

	if *logLevel != "" {
		c.LogLevel = *logLevel
	}

	l := logrus.New()
	l.Formatter = &prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithError(err).Error("Invalid log level")
		os.Exit(1)
	}

	l.SetLevel(level)

	log := l.WithField("plan", c.Plan)

	if err := run(log, c); err != nil {
		log.WithError(err).Error("Demo failed")
		os.Exit(1)
	}
}

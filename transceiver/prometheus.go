package transceiver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusTransceiversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webrtc_transceivers_total",
	Help: "Total number of transceivers created",
}, []string{"plan"})

var prometheusStateUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webrtc_transceiver_state_updates_total",
	Help: "Total number of transceiver state-updated events fired",
}, []string{"reason"})

var prometheusRenegotiationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "webrtc_transceiver_renegotiations_total",
	Help: "Total number of renegotiations requested by Plan B emulation",
})

var prometheusPairingDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "webrtc_planb_pairing_decode_errors_total",
	Help: "Total number of malformed Plan B pairing stream IDs",
})

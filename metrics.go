package uhf

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uhf",
			Subsystem: "reader",
			Name:      "exchanges_total",
			Help:      "Request/response exchanges by opcode and result.",
		},
		[]string{"opcode", "result"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uhf",
			Subsystem: "reader",
			Name:      "exchange_duration_seconds",
			Help:      "Request/response round trip time in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"opcode"},
	)
	pollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uhf",
			Subsystem: "scanner",
			Name:      "poll_cycles_total",
			Help:      "Inventory poll cycles by result.",
		},
		[]string{"result"},
	)
	tagsReported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uhf",
			Subsystem: "scanner",
			Name:      "tags_reported_total",
			Help:      "Tags reported for the first time in a scan session.",
		},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "uhf",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Events dropped because a subscriber did not take them in time.",
		},
	)
)

// RegisterMetrics registers the collectors with the default registry.
// Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(exchanges, exchangeDuration, pollCycles, tagsReported, eventsDropped)
	})
}

func recordExchange(opcode byte, err error, duration time.Duration) {
	op := opcodeLabel(opcode)
	result := "ok"
	if err != nil {
		result = ErrorKind(err).String()
	}
	exchanges.WithLabelValues(op, result).Inc()
	exchangeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func opcodeLabel(opcode byte) string {
	switch opcode {
	case CmdInventory:
		return "inventory"
	case CmdReadMemory:
		return "read_memory"
	case CmdWriteMemory:
		return "write_memory"
	case CmdWriteEPC:
		return "write_epc"
	case CmdSetLock:
		return "set_lock"
	case CmdSetReaderPower:
		return "set_power"
	case CmdSetWorkMode:
		return "set_work_mode"
	case CmdGetWorkMode:
		return "get_work_mode"
	default:
		return "other"
	}
}

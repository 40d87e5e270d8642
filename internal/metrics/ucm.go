// Package metrics provides Prometheus metrics for use case manager sessions.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	mixerWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ucmd",
		Subsystem: "mixer",
		Name:      "writes_total",
		Help:      "Mixer control writes issued by use case sequences",
	}, []string{"card", "kind", "result"})

	setOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ucmd",
		Subsystem: "ucm",
		Name:      "set_operations_total",
		Help:      "Use case set requests by identifier",
	}, []string{"card", "identifier", "result"})

	activeDevices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ucmd",
		Subsystem: "ucm",
		Name:      "active_devices",
		Help:      "Devices currently in the enabled set",
	}, []string{"card"})

	activeModifiers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ucmd",
		Subsystem: "ucm",
		Name:      "active_modifiers",
		Help:      "Modifiers currently in the enabled set",
	}, []string{"card"})

	parseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ucmd",
		Subsystem: "parser",
		Name:      "duration_seconds",
		Help:      "Time spent parsing use case configuration",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"card", "stage"})

	calibrationPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ucmd",
		Subsystem: "acdb",
		Name:      "pushes_total",
		Help:      "Calibration pushes by kind",
	}, []string{"card", "kind", "result"})

	// Local cache for SSE exporter access.
	cardCache   = make(map[string]*CardMetrics)
	cardCacheMu sync.RWMutex
)

// CardMetrics holds current metric values for an open card session.
type CardMetrics struct {
	Verb            string
	ActiveDevices   int
	ActiveModifiers int
	MixerWrites     uint64
	MixerErrors     uint64
}

// RecordMixerWrite counts one control write.
func RecordMixerWrite(card, kind string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	mixerWrites.WithLabelValues(card, kind, result).Inc()
	updateCache(card, func(m *CardMetrics) {
		m.MixerWrites++
		if err != nil {
			m.MixerErrors++
		}
	})
}

// RecordSet counts one set request.
func RecordSet(card, identifier string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	setOperations.WithLabelValues(card, identifier, result).Inc()
}

// SetSessionState publishes the current verb and active set sizes of a card.
func SetSessionState(card, verb string, devices, modifiers int) {
	activeDevices.WithLabelValues(card).Set(float64(devices))
	activeModifiers.WithLabelValues(card).Set(float64(modifiers))
	updateCache(card, func(m *CardMetrics) {
		m.Verb = verb
		m.ActiveDevices = devices
		m.ActiveModifiers = modifiers
	})
}

// ObserveParse records how long a parse stage took.
func ObserveParse(card, stage string, d time.Duration) {
	parseDuration.WithLabelValues(card, stage).Observe(d.Seconds())
}

// RecordCalibration counts one calibration push.
func RecordCalibration(card, kind string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	calibrationPushes.WithLabelValues(card, kind, result).Inc()
}

// DeleteCardMetrics removes the gauges and cached values of a card.
func DeleteCardMetrics(card string) {
	activeDevices.DeleteLabelValues(card)
	activeModifiers.DeleteLabelValues(card)

	cardCacheMu.Lock()
	delete(cardCache, card)
	cardCacheMu.Unlock()
}

// GetCardMetrics returns current metric values for a card.
func GetCardMetrics(card string) *CardMetrics {
	cardCacheMu.RLock()
	defer cardCacheMu.RUnlock()
	if m, ok := cardCache[card]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllCardMetrics returns metrics for all open cards.
func GetAllCardMetrics() map[string]*CardMetrics {
	cardCacheMu.RLock()
	defer cardCacheMu.RUnlock()
	result := make(map[string]*CardMetrics, len(cardCache))
	for card, m := range cardCache {
		dup := *m
		result[card] = &dup
	}
	return result
}

func updateCache(card string, update func(*CardMetrics)) {
	cardCacheMu.Lock()
	defer cardCacheMu.Unlock()
	m, ok := cardCache[card]
	if !ok {
		m = &CardMetrics{}
		cardCache[card] = m
	}
	update(m)
}

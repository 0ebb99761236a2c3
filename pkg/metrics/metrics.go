// Package metrics holds the prometheus collectors shared by the broker and
// its upstream clients.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound message metrics
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kashi_messages_total",
			Help: "Total number of handled messages",
		},
		[]string{"type", "status"},
	)

	messageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kashi_message_duration_seconds",
			Help:    "Time from receiving a message until its response is ready",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"type", "status"},
	)

	messagesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kashi_messages_in_flight",
			Help: "Number of messages waiting on upstream round-trips",
		},
	)

	// Upstream request metrics
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kashi_upstream_requests_total",
			Help: "Total number of outbound provider requests",
		},
		[]string{"provider", "code"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kashi_upstream_request_duration_seconds",
			Help:    "Duration of outbound provider requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"provider"},
	)

	upstreamResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kashi_upstream_response_size_bytes",
			Help:    "Size of provider response bodies in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"provider"},
	)

	// Lyric resolution metrics
	lyricsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kashi_lyrics_resolved_total",
			Help: "Lyric lookups by the source that produced the text",
		},
		[]string{"source"},
	)
)

// RecordMessage records the outcome of one inbound message.
func RecordMessage(msgType string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	messagesTotal.WithLabelValues(msgType, status).Inc()
	messageDuration.WithLabelValues(msgType, status).Observe(duration.Seconds())
}

// MessageStarted increments the in-flight gauge and returns the function
// that decrements it.
func MessageStarted() func() {
	messagesInFlight.Inc()
	return messagesInFlight.Dec
}

// RecordUpstream records one outbound request. A code of 0 means the
// request never produced a response.
func RecordUpstream(provider string, code int, duration time.Duration, size int) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	upstreamRequestsTotal.WithLabelValues(provider, label).Inc()
	upstreamRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if code > 0 {
		upstreamResponseSize.WithLabelValues(provider).Observe(float64(size))
	}
}

// RecordLyricsSource records which provider produced the lyrics returned to
// the caller ("none" when neither did).
func RecordLyricsSource(source string) {
	lyricsResolvedTotal.WithLabelValues(source).Inc()
}

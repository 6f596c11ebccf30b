package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadstream_streams_started_total",
		Help: "Streams that entered the emitting state.",
	})

	streamsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadstream_streams_finished_total",
		Help: "Streams that reached a terminal state, by state.",
	}, []string{"state"})

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "threadstream_streams_active",
		Help: "Streams currently emitting.",
	})

	chunksEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadstream_stream_chunks_total",
		Help: "Characters delivered to clients.",
	})

	streamSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadstream_stream_duration_seconds",
		Help:    "Wall-clock time from stream start to terminal state.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
	})
)

func init() {
	prometheus.MustRegister(streamsStarted)
	prometheus.MustRegister(streamsFinished)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(chunksEmitted)
	prometheus.MustRegister(streamSeconds)
}

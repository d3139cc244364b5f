// Package metrics exposes Prometheus counters for the chat relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat turn metrics
	TurnsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_turns_started_total",
		Help: "Total number of chat turns started",
	})
	TurnsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_turns_completed_total",
		Help: "Total number of chat turns that produced an assistant reply",
	})
	TurnsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_turns_failed_total",
		Help: "Total number of chat turns aborted by an upstream error",
	})
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatease_turn_duration_seconds",
		Help:    "Wall time of a full chat turn including streaming",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// Stream metrics
	StreamPartials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_stream_partials_total",
		Help: "Total number of partial snapshots published while streaming",
	})

	// Transcription metrics
	TranscriptionRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_transcription_requests_total",
		Help: "Total number of transcription requests relayed to Deepgram",
	})
	TranscriptionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_transcription_failures_total",
		Help: "Total number of failed transcription requests",
	})
	TranscriptionEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatease_transcription_empty_total",
		Help: "Total number of successful transcriptions with no speech found",
	})
)

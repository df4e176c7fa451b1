package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invitebatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitebatch_batches_total",
			Help: "Invite batches by terminal status",
		},
		[]string{"status"},
	)
	InvitesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitebatch_invites_total",
			Help: "Invite items by outcome (created, skipped, sent, failed)",
		},
		[]string{"outcome"},
	)
	SendAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitebatch_send_attempts_total",
			Help: "Notification send attempts by result",
		},
		[]string{"result"},
	)
	InFlightSends = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "invitebatch_sends_in_flight",
		Help: "Notification sends currently in flight across all batches",
	})
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "invitebatch_stream_subscribers",
		Help: "Live progress stream subscribers",
	})
)

// RecordBatch 记录批次终态
func RecordBatch(status string) { BatchesTotal.WithLabelValues(status).Inc() }

// RecordInvites 按结果累加邀请数
func RecordInvites(outcome string, n int) {
	if n > 0 {
		InvitesTotal.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordAttempt 记录一次发送尝试
func RecordAttempt(ok bool) {
	if ok {
		SendAttempts.WithLabelValues("ok").Inc()
		return
	}
	SendAttempts.WithLabelValues("error").Inc()
}

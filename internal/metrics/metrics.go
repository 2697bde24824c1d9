// Package metrics exposes Prometheus collectors for uploads, blob cleanup and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "thumbnail_service"

// Upload results.
const (
	UploadStored   = "stored"
	UploadRejected = "rejected"
	UploadFailed   = "failed"
)

// Blob deletion results.
const (
	BlobDeleted = "deleted"
	BlobFailed  = "failed"
	BlobQueued  = "queued"
)

// Metrics holds every collector the service reports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	blobDeletions *prometheus.CounterVec
	orphansSwept  prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// MustNew registers the collectors with reg and panics on duplicate
// registration. Tests should pass a fresh prometheus.NewRegistry().
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Thumbnail uploads by outcome.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written to the content store by successful uploads.",
		}),
		blobDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_deletions_total",
			Help:      "Blob deletion attempts by outcome. Failed deletions leave orphaned blobs.",
		}, []string{"result"}),
		orphansSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_swept_total",
			Help:      "Unreferenced blobs removed by the sweeper.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.uploads, m.uploadBytes, m.blobDeletions, m.orphansSwept, m.httpRequests, m.httpDuration)
	return m
}

// ObserveUpload records one upload outcome; bytes counts only for stored uploads.
func (m *Metrics) ObserveUpload(result string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	if result == UploadStored && bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

// ObserveBlobDeletion records one blob deletion outcome.
func (m *Metrics) ObserveBlobDeletion(result string) {
	if m == nil {
		return
	}
	m.blobDeletions.WithLabelValues(result).Inc()
}

// ObserveOrphansSwept adds n removed orphans.
func (m *Metrics) ObserveOrphansSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphansSwept.Add(float64(n))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

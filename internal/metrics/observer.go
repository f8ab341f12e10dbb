// Package metrics exports upload pipeline metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hummingbird/service/internal/upload"
)

// Outcome label values.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Observer records one sample per upload.
type Observer struct {
	uploads  *prometheus.CounterVec
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewObserver registers the upload metrics on reg, reusing collectors that
// are already registered under the same names.
func NewObserver(namespace string, reg prometheus.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = "hummingbird"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	uploads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Uploads by outcome and rejection kind.",
	}, []string{"outcome", "kind"}))
	if err != nil {
		return nil, fmt.Errorf("register uploads counter: %w", err)
	}

	bytes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Cumulative size of accepted uploads.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register upload bytes counter: %w", err)
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "Time spent ingesting an upload.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register upload duration histogram: %w", err)
	}

	return &Observer{uploads: uploads, bytes: bytes, duration: duration}, nil
}

// Observe implements upload.Observer.
func (o *Observer) Observe(out upload.Outcome, elapsed time.Duration) {
	if o == nil {
		return
	}

	var outcome, kind string
	switch v := out.(type) {
	case upload.Accepted:
		outcome = outcomeAccepted
		o.bytes.Add(float64(v.Media.Size))
	case upload.Rejected:
		outcome, kind = outcomeRejected, string(v.Kind)
	default:
		outcome, kind = outcomeFailed, string(upload.KindInternal)
	}

	o.uploads.WithLabelValues(outcome, kind).Inc()
	o.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

var _ upload.Observer = (*Observer)(nil)

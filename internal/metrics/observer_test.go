package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird/service/internal/media"
	"github.com/hummingbird/service/internal/upload"
)

func TestObserverRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewObserver("test", reg)
	require.NoError(t, err)

	obs.Observe(upload.Accepted{Key: "a", Media: media.Media{Key: "a", Size: 100}}, time.Millisecond)
	obs.Observe(upload.Accepted{Key: "b", Media: media.Media{Key: "b", Size: 50}}, time.Millisecond)
	obs.Observe(upload.Rejected{Kind: upload.KindFileTooLarge}, time.Millisecond)
	obs.Observe(upload.Failed{Cause: errors.New("boom")}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.uploads.WithLabelValues("accepted", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.uploads.WithLabelValues("rejected", "file_too_large")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.uploads.WithLabelValues("failed", "internal")))
	assert.Equal(t, 150.0, testutil.ToFloat64(obs.bytes))
	assert.Equal(t, 3, testutil.CollectAndCount(obs.duration))
}

func TestNewObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewObserver("test", reg)
	require.NoError(t, err)
	second, err := NewObserver("test", reg)
	require.NoError(t, err)

	second.Observe(upload.Accepted{Media: media.Media{Size: 7}}, time.Millisecond)
	assert.Equal(t, 7.0, testutil.ToFloat64(first.bytes))
}

func TestNilObserverIsSafe(t *testing.T) {
	var obs *Observer
	assert.NotPanics(t, func() { obs.Observe(upload.Accepted{}, time.Second) })
}

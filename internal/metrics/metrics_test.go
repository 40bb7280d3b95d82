package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/oggyb/discovery/internal/metrics"
)

func TestObserveSearchCountsErrorsByKind(t *testing.T) {
	before := testutil.ToFloat64(metrics.SearchErrors.WithLabelValues("validation"))

	metrics.ObserveSearch(time.Now(), "")
	metrics.ObserveSearch(time.Now(), "validation")

	after := testutil.ToFloat64(metrics.SearchErrors.WithLabelValues("validation"))
	assert.Equal(t, before+1, after)
}

func TestRecordNotify(t *testing.T) {
	ok := testutil.ToFloat64(metrics.NotifyEvents.WithLabelValues("like", "ok"))
	failed := testutil.ToFloat64(metrics.NotifyEvents.WithLabelValues("like", "error"))

	metrics.RecordNotify("like", nil)
	metrics.RecordNotify("like", errors.New("broker down"))

	assert.Equal(t, ok+1, testutil.ToFloat64(metrics.NotifyEvents.WithLabelValues("like", "ok")))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.NotifyEvents.WithLabelValues("like", "error")))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestMetrics(t *testing.T) {
	device := "/dev/video-test-metrics"

	RecordRequestAllocated(device, SourceNew)
	RecordRequestAllocated(device, SourcePool)
	RecordRequestAllocated(device, SourcePool)
	RecordRequestReleased(device)
	RecordRequestRecycled(device)
	RecordRequestDestroyed(device, "orphaned")
	RecordRequestSubmitted(device)
	RecordRequestSubmitFailure(device)
	SetRequestPoolIdle(device, 3)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"allocated new", testutil.ToFloat64(requestsAllocated.WithLabelValues(device, SourceNew)), 1},
		{"allocated pool", testutil.ToFloat64(requestsAllocated.WithLabelValues(device, SourcePool)), 2},
		{"outstanding", testutil.ToFloat64(requestsOutstanding.WithLabelValues(device)), 2},
		{"recycled", testutil.ToFloat64(requestsRecycled.WithLabelValues(device)), 1},
		{"destroyed orphaned", testutil.ToFloat64(requestsDestroyed.WithLabelValues(device, "orphaned")), 1},
		{"submitted", testutil.ToFloat64(requestsSubmitted.WithLabelValues(device)), 1},
		{"submit failures", testutil.ToFloat64(requestSubmitFailures.WithLabelValues(device)), 1},
		{"pool idle", testutil.ToFloat64(requestPoolIdle.WithLabelValues(device)), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	DeleteRequestMetrics(device)
	if n := testutil.CollectAndCount(requestPoolIdle); n != 0 {
		t.Errorf("pool_idle series after delete = %d, want 0", n)
	}

	// Delete non-existent should not panic
	DeleteRequestMetrics("non-existent-device")
}

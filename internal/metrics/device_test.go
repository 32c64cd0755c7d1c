package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetDecoders(t *testing.T) {
	SetDecoders([]DecoderSeries{
		{Device: "/dev/video1", Media: "/dev/media0", Driver: "hantro-vpu", Codec: "S264"},
		{Device: "/dev/video1", Media: "/dev/media0", Driver: "hantro-vpu", Codec: "VP8F"},
		{Device: "/dev/video3", Media: "/dev/media1", Driver: "rkvdec", Codec: "S265"},
	})

	if got := testutil.ToFloat64(decodersPresent); got != 2 {
		t.Errorf("decoders present = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(decoderInfo); got != 3 {
		t.Errorf("info series = %d, want 3", got)
	}

	// A later scan replaces the previous series.
	SetDecoders([]DecoderSeries{
		{Device: "/dev/video3", Media: "/dev/media1", Driver: "rkvdec", Codec: "S265"},
	})
	if got := testutil.ToFloat64(decodersPresent); got != 1 {
		t.Errorf("decoders present = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(decoderInfo); got != 1 {
		t.Errorf("info series = %d, want 1", got)
	}

	SetDecoders(nil)
	if got := testutil.ToFloat64(decodersPresent); got != 0 {
		t.Errorf("decoders present = %v, want 0", got)
	}
}

func TestRecordHotplugEvent(t *testing.T) {
	RecordHotplugEvent("video4linux", "add")
	RecordHotplugEvent("video4linux", "add")
	RecordHotplugEvent("media", "remove")

	if got := testutil.ToFloat64(hotplugEvents.WithLabelValues("video4linux", "add")); got != 2 {
		t.Errorf("video4linux add = %v, want 2", got)
	}
	if got := testutil.ToFloat64(hotplugEvents.WithLabelValues("media", "remove")); got != 1 {
		t.Errorf("media remove = %v, want 1", got)
	}
}

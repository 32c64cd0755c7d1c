//go:build linux

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/v4l2codecs/internal/events"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

type staticDecoders []v4l2.DecoderInfo

func (s staticDecoders) Decoders() []v4l2.DecoderInfo { return s }

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, Options{})

	var health HealthData
	if resp := getJSON(t, ts.URL+"/api/health", &health); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	var ver VersionData
	getJSON(t, ts.URL+"/api/version", &ver)
	if ver.Version == "" || ver.GoVersion == "" {
		t.Errorf("version = %+v", ver)
	}
}

func TestListDecoders(t *testing.T) {
	tests := []struct {
		name    string
		source  DecoderSource
		want    int
		wantDev string
	}{
		{name: "no source", source: nil, want: 0},
		{name: "empty", source: staticDecoders{}, want: 0},
		{
			name: "two decoders",
			source: staticDecoders{
				{VideoPath: "/dev/video1", MediaPath: "/dev/media0", Driver: "hantro-vpu", Codecs: []string{"S264"}},
				{VideoPath: "/dev/video2", Driver: "rkvdec"},
			},
			want:    2,
			wantDev: "/dev/video1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{Decoders: tt.source})

			var body DecodersData
			getJSON(t, ts.URL+"/api/decoders", &body)

			if body.Count != tt.want || len(body.Decoders) != tt.want {
				t.Fatalf("got %+v, want %d decoders", body, tt.want)
			}
			if tt.want > 0 && body.Decoders[0].VideoDevice != tt.wantDev {
				t.Errorf("first decoder = %+v", body.Decoders[0])
			}
			for _, d := range body.Decoders {
				if d.Codecs == nil {
					t.Errorf("codecs of %s is null", d.VideoDevice)
				}
			}
		})
	}
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "v4l2codecs_decoder_present 1\n")
	})

	ts := newTestServer(t, Options{MetricsHandler: metrics})
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "v4l2codecs_decoder_present") {
		t.Errorf("/metrics body = %q", body)
	}

	noMetrics := newTestServer(t, Options{})
	resp, err = http.Get(noMetrics.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler status = %d, want 404", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Options{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

// readEvent reads SSE lines until an event of the given name arrives and
// returns its data line.
func readEvent(t *testing.T, r *bufio.Reader, name string) string {
	t.Helper()
	current := ""
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading event %q: %v", name, err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			current = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && current == name:
			return strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventStream(t *testing.T) {
	bus := events.New()
	ts := newTestServer(t, Options{EventBus: bus})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readEvent(t, r, "connected")

	bus.Publish(events.RequestDestroyedEvent{VideoDevice: "/dev/video1", Reason: "pending"})

	var ev events.RequestDestroyedEvent
	if err := json.Unmarshal([]byte(readEvent(t, r, "request-destroyed")), &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.VideoDevice != "/dev/video1" || ev.Reason != "pending" {
		t.Errorf("event = %+v", ev)
	}
}

package nats

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/v4l2codecs/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(ServerOptions{Port: -1, Name: "test-server", Logger: testLogger()})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestSubjects(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"device", SubjectDevice("/dev/video1"), "v4l2codecs.devices.video1"},
		{"media device", SubjectDevice("/dev/media0"), "v4l2codecs.devices.media0"},
		{"unknown node", SubjectDevice(""), "v4l2codecs.devices.unknown"},
		{"state", SubjectDecoderState("/dev/video3"), "v4l2codecs.decoders.video3.state"},
		{"requests", SubjectRequestDestroyed("/dev/video3"), "v4l2codecs.decoders.video3.requests"},
		{"wildcards replaced", SubjectDecoderState("/tmp/a.b*c>"), "v4l2codecs.decoders.a_b_c_.state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(ServerOptions{Port: -1, Logger: testLogger()})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("server should be running after Start()")
	}
	if srv.ClientURL() == "" {
		t.Error("ClientURL() should not be empty")
	}

	srv.Stop()
	if srv.IsRunning() {
		t.Error("server should not be running after Stop()")
	}
	srv.Stop()
}

func TestPublisherGracefulDegradation(t *testing.T) {
	bus := events.New()
	p := NewPublisher("nats://127.0.0.1:1", bus, testLogger())

	if err := p.Start(); err == nil {
		t.Fatal("Start() should fail without a server")
	}
	if p.IsConnected() {
		t.Error("publisher should not be connected")
	}

	// Not subscribed, so this reaches nobody and must not panic.
	bus.Publish(events.RequestDestroyedEvent{VideoDevice: "/dev/video0", Reason: "pending"})
	p.publish(SubjectRequestDestroyed("/dev/video0"), RequestMessage{Reason: "pending"})
	p.Stop()
}

func TestPublisherForwardsEvents(t *testing.T) {
	srv := startTestServer(t)

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer sub.Close()

	msgs := make(chan *nats.Msg, 8)
	if _, err := sub.ChanSubscribe(SubjectPrefix+".>", msgs); err != nil {
		t.Fatalf("ChanSubscribe() error: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	bus := events.New()
	p := NewPublisher(srv.ClientURL(), bus, testLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Stop()
	if !p.IsConnected() {
		t.Fatal("publisher should be connected")
	}

	bus.Publish(events.DecoderDeviceEvent{Action: "add", Subsystem: "video4linux", Node: "/dev/video2"})
	bus.Publish(events.DecoderStateEvent{VideoDevice: "/dev/video2", MediaDevice: "/dev/media0", Opened: true})
	bus.Publish(events.RequestDestroyedEvent{VideoDevice: "/dev/video2", Reason: "orphaned"})

	got := make(map[string][]byte)
	timeout := time.After(5 * time.Second)
	for len(got) < 3 {
		select {
		case msg := <-msgs:
			got[msg.Subject] = msg.Data
		case <-timeout:
			t.Fatalf("received %d of 3 messages: %v", len(got), got)
		}
	}

	dev, err := UnmarshalDevice(got["v4l2codecs.devices.video2"])
	if err != nil || dev.Action != "add" || dev.Node != "/dev/video2" {
		t.Errorf("device message = %+v, %v", dev, err)
	}
	state, err := UnmarshalState(got["v4l2codecs.decoders.video2.state"])
	if err != nil || !state.Opened || state.MediaDevice != "/dev/media0" {
		t.Errorf("state message = %+v, %v", state, err)
	}
	req, err := UnmarshalRequest(got["v4l2codecs.decoders.video2.requests"])
	if err != nil || req.Reason != "orphaned" {
		t.Errorf("request message = %+v, %v", req, err)
	}
}

func TestPublisherStopUnsubscribes(t *testing.T) {
	srv := startTestServer(t)

	bus := events.New()
	p := NewPublisher(srv.ClientURL(), bus, testLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	p.Stop()

	if p.IsConnected() {
		t.Error("publisher should not be connected after Stop()")
	}
	// Publishing after Stop must not reach a closed connection.
	bus.Publish(events.RequestDestroyedEvent{VideoDevice: "/dev/video0", Reason: "closed"})
	p.Stop()
}

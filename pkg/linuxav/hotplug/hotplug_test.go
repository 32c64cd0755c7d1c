//go:build linux

package hotplug

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *Event
	}{
		{
			name:     "empty input",
			input:    []byte{},
			expected: nil,
		},
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "no @ separator",
			input:    []byte("invalid"),
			expected: nil,
		},
		{
			name:     "missing action",
			input:    []byte("@/devices/foo"),
			expected: nil,
		},
		{
			name:  "decoder video node added",
			input: []byte("add@/devices/platform/fdea0000.video-codec/video4linux/video1\x00ACTION=add\x00SUBSYSTEM=video4linux\x00DEVNAME=video1\x00MAJOR=81\x00MINOR=1\x00"),
			expected: &Event{
				Action:    "add",
				KObj:      "/devices/platform/fdea0000.video-codec/video4linux/video1",
				Subsystem: "video4linux",
				DevName:   "video1",
				Env: map[string]string{
					"ACTION":    "add",
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "video1",
					"MAJOR":     "81",
					"MINOR":     "1",
				},
			},
		},
		{
			name:  "media node removed",
			input: []byte("remove@/devices/platform/fdea0000.video-codec/media0\x00SUBSYSTEM=media\x00DEVNAME=media0\x00DEVPATH=/devices/platform/fdea0000.video-codec/media0\x00"),
			expected: &Event{
				Action:    "remove",
				KObj:      "/devices/platform/fdea0000.video-codec/media0",
				Subsystem: "media",
				DevName:   "media0",
				DevPath:   "/devices/platform/fdea0000.video-codec/media0",
				Env: map[string]string{
					"SUBSYSTEM": "media",
					"DEVNAME":   "media0",
					"DEVPATH":   "/devices/platform/fdea0000.video-codec/media0",
				},
			},
		},
		{
			name:  "unbind with devtype",
			input: []byte("unbind@/devices/platform/codec\x00SUBSYSTEM=platform\x00DEVTYPE=codec\x00"),
			expected: &Event{
				Action:    "unbind",
				KObj:      "/devices/platform/codec",
				Subsystem: "platform",
				DevType:   "codec",
				Env: map[string]string{
					"SUBSYSTEM": "platform",
					"DEVTYPE":   "codec",
				},
			},
		},
		{
			name:  "empty values and trailing nulls",
			input: []byte("change@/devices/test\x00KEY1=value1\x00KEY2=\x00\x00\x00"),
			expected: &Event{
				Action: "change",
				KObj:   "/devices/test",
				Env: map[string]string{
					"KEY1": "value1",
					"KEY2": "",
				},
			},
		},
		{
			name:  "key with equals in value",
			input: []byte("add@/dev/foo\x00KEY=val=ue\x00=orphan\x00noequals\x00"),
			expected: &Event{
				Action: "add",
				KObj:   "/dev/foo",
				Env:    map[string]string{"KEY": "val=ue"},
			},
		},
		{
			name:     "only null bytes",
			input:    []byte{0, 0, 0, 0},
			expected: nil,
		},
		{
			name:  "libudev header skipped",
			input: append([]byte("libudev\x00\xfe\xed\xca\xfe\x00"), []byte("add@/devices/v/video0\x00SUBSYSTEM=video4linux\x00")...),
			expected: &Event{
				Action:    "add",
				KObj:      "/devices/v/video0",
				Subsystem: "video4linux",
				Env:       map[string]string{"SUBSYSTEM": "video4linux"},
			},
		},
		{
			name:  "very long path",
			input: []byte("add@/devices/" + strings.Repeat("a", 500) + "\x00"),
			expected: &Event{
				Action: "add",
				KObj:   "/devices/" + strings.Repeat("a", 500),
				Env:    map[string]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseUEvent(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %+v", result)
				}
				return
			}

			if result == nil {
				t.Fatalf("expected %+v, got nil", tt.expected)
			}

			if result.Action != tt.expected.Action {
				t.Errorf("Action: expected %q, got %q", tt.expected.Action, result.Action)
			}
			if result.KObj != tt.expected.KObj {
				t.Errorf("KObj: expected %q, got %q", tt.expected.KObj, result.KObj)
			}
			if result.Subsystem != tt.expected.Subsystem {
				t.Errorf("Subsystem: expected %q, got %q", tt.expected.Subsystem, result.Subsystem)
			}
			if result.DevType != tt.expected.DevType {
				t.Errorf("DevType: expected %q, got %q", tt.expected.DevType, result.DevType)
			}
			if result.DevName != tt.expected.DevName {
				t.Errorf("DevName: expected %q, got %q", tt.expected.DevName, result.DevName)
			}
			if result.DevPath != tt.expected.DevPath {
				t.Errorf("DevPath: expected %q, got %q", tt.expected.DevPath, result.DevPath)
			}

			if len(result.Env) != len(tt.expected.Env) {
				t.Errorf("Env length: expected %d, got %d", len(tt.expected.Env), len(result.Env))
			}
			for k, v := range tt.expected.Env {
				if result.Env[k] != v {
					t.Errorf("Env[%q]: expected %q, got %q", k, v, result.Env[k])
				}
			}
		})
	}
}

func TestEventNode(t *testing.T) {
	tests := []struct {
		devName string
		want    string
	}{
		{"video1", "/dev/video1"},
		{"media0", "/dev/media0"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (Event{DevName: tt.devName}).Node(); got != tt.want {
			t.Errorf("Node() for %q = %q, want %q", tt.devName, got, tt.want)
		}
	}
}

// newTestMonitor skips when netlink sockets are unavailable (containers).
func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := NewMonitor()
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMonitorCloseIdempotent(t *testing.T) {
	m := newTestMonitor(t)

	if err := m.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestMonitorFilters(t *testing.T) {
	m := newTestMonitor(t)

	if !m.accepts("usb") {
		t.Error("monitor without filters should accept every subsystem")
	}

	m.AddSubsystemFilter(SubsystemVideo4Linux)
	m.AddSubsystemFilter(SubsystemMedia)

	tests := []struct {
		subsystem string
		want      bool
	}{
		{SubsystemVideo4Linux, true},
		{SubsystemMedia, true},
		{"sound", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.accepts(tt.subsystem); got != tt.want {
			t.Errorf("accepts(%q) = %v, want %v", tt.subsystem, got, tt.want)
		}
	}
}

func TestNewDecoderMonitor(t *testing.T) {
	m, err := NewDecoderMonitor()
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(m.filters))
	}
	for _, s := range []string{SubsystemVideo4Linux, SubsystemMedia} {
		if _, ok := m.filters[s]; !ok {
			t.Errorf("missing filter %q", s)
		}
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m := newTestMonitor(t)

	// Already-cancelled context: Run returns immediately
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event, 10)
	runErr := m.Run(ctx, events)

	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", runErr)
	}
	if _, open := <-events; open {
		t.Error("expected events channel to be closed")
	}
}

// TestMonitorConcurrentFilterAdd exercises the filter lock.
// Run with: go test -race -run TestMonitorConcurrentFilterAdd.
func TestMonitorConcurrentFilterAdd(t *testing.T) {
	m := newTestMonitor(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.AddSubsystemFilter(SubsystemVideo4Linux)
				m.AddSubsystemFilter(SubsystemMedia)
				_ = m.accepts(SubsystemMedia)
			}
		}()
	}
	wg.Wait()

	m.filtersMu.RLock()
	if len(m.filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(m.filters))
	}
	m.filtersMu.RUnlock()
}

//go:build linux

package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smazurov/v4l2codecs/internal/version"
	"github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"
)

var testDecoders = []v4l2.DecoderInfo{
	{VideoPath: "/dev/video0", Driver: "bcm2835-codec", Codecs: []string{"S264"}},
	{VideoPath: "/dev/video1", MediaPath: "/dev/media0", Driver: "hantro-vpu", Codecs: []string{"S264", "VP8F", "MG2S"}},
	{VideoPath: "/dev/video3", MediaPath: "/dev/media1", Driver: "rkvdec", Codecs: []string{"S264", "S265", "VP9F"}},
}

func TestPickDecoder(t *testing.T) {
	tests := []struct {
		codec     string
		wantVideo string
		wantOK    bool
	}{
		{"", "/dev/video1", true},
		{"S264", "/dev/video1", true},
		{"VP9F", "/dev/video3", true},
		{"AV1F", "", false},
	}

	for _, tt := range tests {
		t.Run("codec="+tt.codec, func(t *testing.T) {
			got, ok := pickDecoder(testDecoders, tt.codec)
			if ok != tt.wantOK || got.VideoPath != tt.wantVideo {
				t.Errorf("pickDecoder(%q) = %q, %v; want %q, %v", tt.codec, got.VideoPath, ok, tt.wantVideo, tt.wantOK)
			}
		})
	}
}

func TestWriteDevices(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDevices(&buf, testDecoders, "toml"); err != nil {
		t.Fatalf("writeDevices() error = %v", err)
	}

	var got devicesReport
	if err := toml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, buf.String())
	}
	if len(got.Decoders) != len(testDecoders) {
		t.Fatalf("decoders = %d, want %d", len(got.Decoders), len(testDecoders))
	}
	if got.Decoders[2].MediaPath != "/dev/media1" || got.Decoders[2].Codecs[1] != "S265" {
		t.Errorf("decoder 2 = %+v", got.Decoders[2])
	}
	if strings.Contains(buf.String(), `media_device = ""`) {
		t.Error("empty media device written")
	}
	if !strings.Contains(buf.String(), "[[decoder]]") {
		t.Errorf("missing [[decoder]] tables:\n%s", buf.String())
	}
}

func TestWriteDevicesFormats(t *testing.T) {
	tests := []struct {
		format    string
		unmarshal func([]byte, any) error
	}{
		{"yaml", yaml.Unmarshal},
		{"json", json.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeDevices(&buf, testDecoders, tt.format); err != nil {
				t.Fatalf("writeDevices() error = %v", err)
			}

			var got devicesReport
			if err := tt.unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not valid %s: %v\n%s", tt.format, err, buf.String())
			}
			if len(got.Decoders) != len(testDecoders) || got.Decoders[0].VideoPath != testDecoders[0].VideoPath {
				t.Errorf("decoders = %+v", got.Decoders)
			}
		})
	}

	if err := writeDevices(io.Discard, testDecoders, "xml"); err == nil {
		t.Error("writeDevices() with unknown format should fail")
	}
}

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"text", nil},
		{"json", []string{"--json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := CreateVersionCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if tt.name == "json" {
				var info version.Info
				if err := json.Unmarshal(out.Bytes(), &info); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if info.Version != version.Version {
					t.Errorf("Version = %q, want %q", info.Version, version.Version)
				}
				return
			}
			if !strings.HasPrefix(out.String(), version.Version+" (") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestProbeCmdFlags(t *testing.T) {
	cmd := CreateProbeCmd()
	for _, name := range []string{"config", "media-device", "video-device", "codec", "width", "height", "prefer", "buffers", "requests"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s missing", name)
		}
	}
}

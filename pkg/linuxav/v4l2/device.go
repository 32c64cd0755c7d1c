//go:build linux

package v4l2

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

const sysfsVideo4Linux = "/sys/class/video4linux"

// FindDecoders finds all stateless V4L2 decoders on the system.
func FindDecoders() ([]DecoderInfo, error) {
	return findDecoders(sysfsVideo4Linux, "/dev")
}

func findDecoders(sysfsRoot, devRoot string) ([]DecoderInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return []DecoderInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	var decoders []DecoderInfo

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "video") {
			continue
		}

		videoPath := filepath.Join(devRoot, entry.Name())
		info, ok := probeDecoder(videoPath)
		if !ok {
			continue
		}

		if mediaName := findMediaNode(filepath.Join(sysfsRoot, entry.Name(), "device")); mediaName != "" {
			info.MediaPath = filepath.Join(devRoot, mediaName)
		}

		decoders = append(decoders, info)
	}

	sort.Slice(decoders, func(i, j int) bool {
		return decoders[i].VideoPath < decoders[j].VideoPath
	})

	return decoders, nil
}

// probeDecoder opens a video node and reports whether it is a multi-planar
// M2M device whose OUTPUT queue accepts a stateless compressed format.
func probeDecoder(videoPath string) (DecoderInfo, bool) {
	logger := slog.With("component", "linuxav")

	dev, err := Open(videoPath)
	if err != nil {
		logger.Debug("failed to open video device", "path", videoPath, "error", err)
		return DecoderInfo{}, false
	}
	defer dev.Close()

	cap, err := dev.QueryCapability()
	if err != nil {
		logger.Debug("failed to query device capabilities", "path", videoPath, "error", err)
		return DecoderInfo{}, false
	}

	if cap.Caps&CapVideoM2MMPlane == 0 || cap.Caps&CapStreaming == 0 {
		return DecoderInfo{}, false
	}

	info := DecoderInfo{
		VideoPath: videoPath,
		Driver:    cap.Driver,
		Card:      cap.Card,
	}

	for i := uint32(0); ; i++ {
		desc, enumErr := dev.EnumFormat(BufTypeVideoOutputMPlane, i)
		if enumErr != nil {
			if !errors.Is(enumErr, unix.EINVAL) {
				logger.Debug("failed to enumerate format", "path", videoPath, "index", i, "error", enumErr)
			}
			break // End of enumeration
		}
		if IsStateless(desc.PixelFormat) {
			info.Codecs = append(info.Codecs, FormatFourCC(desc.PixelFormat))
		}
	}

	return info, len(info.Codecs) > 0
}

// findMediaNode returns the name of the media controller node registered by
// the same parent device, e.g. "media0".
func findMediaNode(deviceDir string) string {
	entries, err := os.ReadDir(deviceDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "media") && len(name) > len("media") {
			return name
		}
	}
	return ""
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

package nats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// SubjectPrefix is the root of every subject published by v4l2codecs.
const SubjectPrefix = "v4l2codecs"

// SubjectDevice returns the subject for hotplug events of a device node.
func SubjectDevice(node string) string {
	return fmt.Sprintf("%s.devices.%s", SubjectPrefix, subjectToken(node))
}

// SubjectDecoderState returns the subject for session open/close events of
// a decoder.
func SubjectDecoderState(videoDevice string) string {
	return fmt.Sprintf("%s.decoders.%s.state", SubjectPrefix, subjectToken(videoDevice))
}

// SubjectRequestDestroyed returns the subject for destroyed media requests
// of a decoder.
func SubjectRequestDestroyed(videoDevice string) string {
	return fmt.Sprintf("%s.decoders.%s.requests", SubjectPrefix, subjectToken(videoDevice))
}

// subjectToken reduces a device path to one subject token, "/dev/video1"
// becoming "video1". Wildcards and separators are replaced.
func subjectToken(path string) string {
	if path == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, filepath.Base(path))
}

// DeviceMessage is a decoder node hotplug event.
type DeviceMessage struct {
	Action    string `json:"action"`
	Subsystem string `json:"subsystem"`
	Node      string `json:"node"`
	KObj      string `json:"kobj,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m DeviceMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// StateMessage is a decoder session open or close.
type StateMessage struct {
	VideoDevice string `json:"video_device"`
	MediaDevice string `json:"media_device"`
	Opened      bool   `json:"opened"`
	Timestamp   string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// RequestMessage reports a media request that was destroyed instead of
// recycled.
type RequestMessage struct {
	VideoDevice string `json:"video_device"`
	Reason      string `json:"reason"`
	Timestamp   string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m RequestMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalDevice deserializes a DeviceMessage from JSON.
func UnmarshalDevice(data []byte) (DeviceMessage, error) {
	var m DeviceMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalRequest deserializes a RequestMessage from JSON.
func UnmarshalRequest(data []byte) (RequestMessage, error) {
	var m RequestMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

package events

// Event type constants for kelindar/event.
const (
	TypeDecoderDevice uint32 = iota + 1
	TypeDecoderState
	TypeRequestDestroyed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DecoderDeviceEvent is published when a video4linux or media node of a
// decoder appears or disappears.
type DecoderDeviceEvent struct {
	Action    string `json:"action" toml:"action"`       // "add", "remove", ...
	Subsystem string `json:"subsystem" toml:"subsystem"` // "video4linux" or "media"
	Node      string `json:"node" toml:"node"`           // e.g. /dev/video1
	KObj      string `json:"kobj" toml:"kobj"`
	Timestamp string `json:"timestamp" toml:"timestamp"`
}

// Type returns the event type identifier for DecoderDeviceEvent.
func (e DecoderDeviceEvent) Type() uint32 { return TypeDecoderDevice }

// DecoderStateEvent is published when a decoder session opens or closes.
type DecoderStateEvent struct {
	VideoDevice string `json:"video_device"`
	MediaDevice string `json:"media_device"`
	Opened      bool   `json:"opened"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for DecoderStateEvent.
func (e DecoderStateEvent) Type() uint32 { return TypeDecoderState }

// RequestDestroyedEvent is published when a media request is closed
// instead of being returned to the pool.
type RequestDestroyedEvent struct {
	VideoDevice string `json:"video_device"`
	Reason      string `json:"reason"` // "closed", "orphaned", "pending", "reinit_failed"
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for RequestDestroyedEvent.
func (e RequestDestroyedEvent) Type() uint32 { return TypeRequestDestroyed }

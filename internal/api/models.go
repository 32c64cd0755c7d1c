//go:build linux

package api

import "github.com/smazurov/v4l2codecs/pkg/linuxav/v4l2"

// HealthData is the body of GET /api/health.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData is the body of GET /api/version.
type VersionData struct {
	Version   string `json:"version" example:"v0.3.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123def456" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-01T00:00:00Z" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version used to build"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// DecoderInfo describes one stateless decoder found on the system.
type DecoderInfo struct {
	VideoDevice string   `json:"video_device" example:"/dev/video1" doc:"Video (streaming) node"`
	MediaDevice string   `json:"media_device,omitempty" example:"/dev/media0" doc:"Media controller node"`
	Driver      string   `json:"driver" example:"hantro-vpu" doc:"Kernel driver"`
	Card        string   `json:"card" example:"hantro-vpu" doc:"Card name reported by the driver"`
	Codecs      []string `json:"codecs" example:"[\"S264\",\"VP8F\"]" doc:"Stateless input formats (FourCC)"`
}

// DecodersData is the body of GET /api/decoders.
type DecodersData struct {
	Decoders []DecoderInfo `json:"decoders" doc:"Decoders found by the last scan"`
	Count    int           `json:"count" example:"1" doc:"Number of decoders"`
}

// DecodersResponse wraps DecodersData.
type DecodersResponse struct {
	Body DecodersData
}

// ConnectedEvent is the first event of every event stream.
type ConnectedEvent struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func decoderInfo(d v4l2.DecoderInfo) DecoderInfo {
	codecs := d.Codecs
	if codecs == nil {
		codecs = []string{}
	}
	return DecoderInfo{
		VideoDevice: d.VideoPath,
		MediaDevice: d.MediaPath,
		Driver:      d.Driver,
		Card:        d.Card,
		Codecs:      codecs,
	}
}

//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2)
// memory-to-memory API used by stateless hardware decoders.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Decoder Discovery
//
// Use FindDecoders to discover stateless decoders and their media nodes:
//
//	decoders, err := v4l2.FindDecoders()
//	for _, dec := range decoders {
//	    fmt.Printf("%s (%s): %v\n", dec.VideoPath, dec.MediaPath, dec.Codecs)
//	}
//
// # Queues
//
// A decoder exposes two multi-planar queues. Compressed bitstream is queued
// on the OUTPUT queue (BufTypeVideoOutputMPlane) and decoded frames are
// returned on the CAPTURE queue (BufTypeVideoCaptureMPlane):
//
//	dev, _ := v4l2.Open("/dev/video0")
//	defer dev.Close()
//	n, _ := dev.RequestBuffers(v4l2.BufTypeVideoOutputMPlane, v4l2.MemoryMMAP, 4)
//	planes, _ := dev.QueryBuffer(v4l2.BufTypeVideoOutputMPlane, v4l2.MemoryMMAP, 0)
//	fd, _ := dev.ExportBuffer(v4l2.BufTypeVideoOutputMPlane, 0, 0, unix.O_CLOEXEC|unix.O_RDWR)
//
// # Controls
//
// Codec parameters are written with SetExtControls, either globally or
// scoped to a media request file descriptor:
//
//	idx, err := dev.SetExtControls(v4l2.CtrlWhichRequestVal, reqFd, ctrls)
package v4l2

// Package decoder drives a stateless V4L2 hardware decoder.
//
// A Decoder owns the two device nodes of one decode session: the media
// controller node used to allocate requests and the video node used for
// formats, buffers and controls. Frames flow through it as follows:
//
//	dec, _ := decoder.New(decoder.Config{
//		MediaDevice: "/dev/media0",
//		VideoDevice: "/dev/video1",
//	})
//	_ = dec.Open()
//	defer dec.Close()
//
//	_ = dec.SetInputFormat(v4l2.PixFmtH264Slice, 1920, 1080)
//	info, _ := dec.SelectOutputFormat(dec.OutputCapabilities(), "NV12")
//	_, _ = dec.RequestBuffers(decoder.Input, 4)
//	_, _ = dec.RequestBuffers(decoder.Output, 8)
//
//	// per frame
//	req, _ := dec.AllocRequest()
//	_ = dec.SetControls(req, controls)
//	_ = dec.QueueInputBuffer(req, bitstream, frameNum, size)
//	_ = dec.QueueOutputBuffer(picture, frameNum)
//	_ = req.Submit()
//	if ready, _ := req.Poll(time.Second); ready {
//		_ = req.MarkDone()
//		frameNum, _ = dec.DequeueOutput()
//	}
//	req.Release()
//
// Requests are pooled. Release reinitializes a completed request and puts it
// back in the pool; requests released while pending, after a failed
// reinitialization, or after the decoder was closed are destroyed instead.
//
// Calls on one queue direction must be serialized by the caller. Request
// allocation and release may happen from different goroutines.
package decoder

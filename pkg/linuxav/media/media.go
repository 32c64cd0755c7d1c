//go:build linux

// Package media provides pure Go bindings to the Linux Media Controller API,
// limited to what stateless codecs need: device information and the
// request API.
//
// A request bundles buffer and control updates so the driver applies them
// atomically:
//
//	dev, _ := media.Open("/dev/media0")
//	req, _ := dev.AllocRequest()
//	// queue buffers / set controls with req.FD()
//	_ = req.Queue()
//	done, _ := req.Wait(time.Second)
//	_ = req.Reinit() // ready for reuse
package media

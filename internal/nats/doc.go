// Package nats publishes decoder events to NATS so other processes can
// follow decoder hotplug, session and request teardown without polling
// the metrics endpoint.
//
// Subjects:
//
//	v4l2codecs.devices.<node>               hotplug add/remove/change
//	v4l2codecs.decoders.<video>.state       decoder session opened/closed
//	v4l2codecs.decoders.<video>.requests    media request destroyed
//
// <node> and <video> are the base names of the device paths, e.g. video1.
// Payloads are JSON (DeviceMessage, StateMessage, RequestMessage).
//
// The daemon either connects to an external server (nats.address) or runs
// an embedded one (nats.embedded, nats.port). To watch events:
//
//	nats sub 'v4l2codecs.>'
package nats

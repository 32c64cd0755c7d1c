//go:build linux

package media

import "unsafe"

var _ [mediaDeviceInfoSize]byte = [unsafe.Sizeof(mediaDeviceInfo{})]byte{}

// mediaDeviceInfo has size 256 bytes.
type mediaDeviceInfo struct {
	driver        [16]byte   // offset 0
	model         [32]byte   // offset 16
	serial        [40]byte   // offset 48
	busInfo       [32]byte   // offset 88
	mediaVersion  uint32     // offset 120
	hwRevision    uint32     // offset 124
	driverVersion uint32     // offset 128
	reserved      [31]uint32 // offset 132
}

// DeviceInfo is the result of MEDIA_IOC_DEVICE_INFO.
type DeviceInfo struct {
	Driver        string
	Model         string
	Serial        string
	BusInfo       string
	MediaVersion  uint32
	HWRevision    uint32
	DriverVersion uint32
}

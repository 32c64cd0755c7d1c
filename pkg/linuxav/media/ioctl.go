//go:build linux

package media

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCTL constants. None of the argument structs contain pointers, so the
// numbers are identical on every architecture.
const (
	mediaIocDeviceInfo      = 0xc1007c00
	mediaIocRequestAlloc    = 0x80047c05
	mediaRequestIocQueue    = 0x00007c80
	mediaRequestIocReinit   = 0x00007c81
	mediaDeviceInfoSize     = 256
	mediaRequestAllocArgLen = 4
)

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

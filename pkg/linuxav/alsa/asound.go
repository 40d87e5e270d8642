//go:build linux

package alsa

import "unsafe"

// sndCtlCardInfo holds no pointers, so its layout and size (376 bytes) are
// the same on every architecture.
var _ [376]byte = [unsafe.Sizeof(sndCtlCardInfo{})]byte{}

// Control interface ioctls.
const (
	sndrvCtlIoctlCardInfo      = 0x81785501
	sndrvCtlIoctlPCMNextDevice = 0x80045530
)

type sndCtlCardInfo struct {
	card       int32     // offset 0
	_          [4]byte   // padding
	id         [16]byte  // offset 8
	driver     [16]byte  // offset 24
	name       [32]byte  // offset 40
	longname   [80]byte  // offset 72
	reserved   [16]byte  // offset 152
	mixername  [80]byte  // offset 168
	components [128]byte // offset 248
}

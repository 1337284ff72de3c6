//go:build windows

package heap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mapRegion reserves and commits read/write pages with VirtualAlloc.
func mapRegion(size int) ([]byte, bool, error) {
	addr, err := windows.VirtualAlloc(
		0,
		uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT,
		windows.PAGE_READWRITE,
	)
	if err != nil {
		return nil, false, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), true, nil
}

func unmapRegion(data []byte) error {
	// dwSize must be 0 with MEM_RELEASE; the whole reservation is freed.
	return windows.VirtualFree(uintptr(unsafe.Pointer(&data[0])), 0, windows.MEM_RELEASE)
}

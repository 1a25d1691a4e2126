//go:build windows

package files

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func freeSpace(path string) (uint64, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	var available uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &available, nil, nil); err != nil {
		return 0, fmt.Errorf("GetDiskFreeSpaceEx failed for %s: %w", path, err)
	}

	return available, nil
}

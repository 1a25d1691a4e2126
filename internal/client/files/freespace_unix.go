//go:build unix

package files

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func freeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs failed for %s: %w", path, err)
	}

	// Bavail: блоки, доступные непривилегированному пользователю
	return stat.Bavail * uint64(stat.Bsize), nil
}

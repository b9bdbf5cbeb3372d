package trash

import (
	"golang.org/x/sys/unix"
)

// freeBytes reports the free space on the filesystem holding path. A func var
// so tests can simulate full disks.
var freeBytes = func(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

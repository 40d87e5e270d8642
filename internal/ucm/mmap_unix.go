//go:build unix

package ucm

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only. The returned release func unmaps it.
func mapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, NewErrorWithCause(CodeNotFound, "config file not found", err, map[string]any{"path": path})
		}
		return nil, nil, NewErrorWithCause(CodeInvalidArgument, "failed to open config file", err, map[string]any{"path": path})
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, NewErrorWithCause(CodeInvalidArgument, "failed to stat config file", err, map[string]any{"path": path})
	}
	if st.Size() == 0 {
		return nil, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, NewErrorWithCause(CodeInvalidArgument, "failed to mmap config file", err, map[string]any{"path": path})
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

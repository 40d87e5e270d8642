//go:build !unix

package ucm

import (
	"errors"
	"io/fs"
	"os"
)

func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, NewErrorWithCause(CodeNotFound, "config file not found", err, map[string]any{"path": path})
		}
		return nil, nil, NewErrorWithCause(CodeInvalidArgument, "failed to read config file", err, map[string]any{"path": path})
	}
	return data, func() error { return nil }, nil
}

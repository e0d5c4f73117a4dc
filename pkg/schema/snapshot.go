package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tstromberg/picmeta/pkg/safeio"
)

// LoadSnapshot reads the schema persisted by the previous migration run.
// It returns nil without error on the first run, when no snapshot exists yet.
func LoadSnapshot(path string) (Node, error) {
	bs, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	n, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return n, nil
}

// SaveSnapshot atomically replaces the snapshot at path with n.
func SaveSnapshot(path string, n Node) error {
	if err := safeio.WriteJSON(path, map[string]any(n)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

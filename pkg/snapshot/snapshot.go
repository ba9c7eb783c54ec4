// Package snapshot persists a gathered change collection so a report can be
// regenerated offline, without re-querying the backends.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HewlettPackard/zing-stats/pkg/changes"
)

// State is everything a replayed report needs: the per-source change sets
// plus the gather metadata they were collected under.
type State struct {
	GeneratedAt time.Time `json:"generated_at"`
	RangeHours  int       `json:"range_hours"`
	Cutoff      time.Time `json:"cutoff"`

	Gerrit *changes.Set `json:"gerrit,omitempty"`
	GitHub *changes.Set `json:"github,omitempty"`

	// NotFound lists projects whose PR listing answered 404 during the gather.
	NotFound []string `json:"not_found,omitempty"`
}

// Save writes the state into dir as snapshot_<timestamp><ext>, with the
// codec selected by ext. It returns the written path.
func Save(dir string, state *State, ext string) (string, error) {
	codec, err := codecFor(ext)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := "snapshot_" + state.GeneratedAt.UTC().Format("20060102T150405Z") + ext
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}

	err = codec.encode(f, state)
	if err != nil {
		f.Close()

		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("close snapshot file: %w", err)
	}

	return path, nil
}

// Load reads a snapshot file, selecting the codec from its extension.
func Load(path string) (*State, error) {
	codec, err := codecFor(extensionOf(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	state := &State{}

	err = codec.decode(f, state)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	return state, nil
}

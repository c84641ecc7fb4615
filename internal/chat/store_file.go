package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileBackend keeps all transcripts in one JSON file, loaded lazily and
// rewritten on every put. Suits local single-instance deployments.
type fileBackend struct {
	path string

	loadOnce sync.Once
	mu       sync.RWMutex
	byKey    map[string]*Transcript
}

func newFileBackend(path string) *fileBackend {
	return &fileBackend{path: path, byKey: make(map[string]*Transcript)}
}

func (f *fileBackend) ensureLoaded() {
	f.loadOnce.Do(func() {
		raw, err := os.ReadFile(f.path)
		if err != nil {
			// Missing file is a fresh store; anything else starts empty
			// and gets overwritten on the next put.
			return
		}
		loaded := make(map[string]*Transcript)
		if err := json.Unmarshal(raw, &loaded); err != nil {
			return
		}
		f.mu.Lock()
		f.byKey = loaded
		f.mu.Unlock()
	})
}

func (f *fileBackend) get(_ context.Context, key string) (*Transcript, bool, error) {
	f.ensureLoaded()
	f.mu.RLock()
	defer f.mu.RUnlock()
	tr, ok := f.byKey[key]
	return tr, ok, nil
}

func (f *fileBackend) put(_ context.Context, key string, tr *Transcript) error {
	f.ensureLoaded()
	f.mu.Lock()
	f.byKey[key] = tr
	raw, err := json.MarshalIndent(f.byKey, "", "  ")
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *fileBackend) close() error { return nil }

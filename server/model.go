package server

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/subculture-collective/chatterchain/markov"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// ModelHolder owns the currently served model and swaps it atomically on
// reload, so in-flight requests always see a complete model.
type ModelHolder struct {
	path string
	cur  atomic.Pointer[modelEntry]
}

type modelEntry struct {
	model    markov.Model
	loadedAt time.Time
}

// NewModelHolder tracks the model file at path without loading it yet.
func NewModelHolder(path string) *ModelHolder {
	return &ModelHolder{path: path}
}

// Path returns the tracked model file path.
func (h *ModelHolder) Path() string { return h.path }

// Load reads the model file and swaps it in. The previous model keeps serving
// until the new one is fully loaded.
func (h *ModelHolder) Load() error {
	f, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()
	m, err := markov.LoadAny(f)
	if err != nil {
		return fmt.Errorf("load model %s: %w", h.path, err)
	}
	h.cur.Store(&modelEntry{model: m, loadedAt: time.Now().UTC()})
	if s, ok := m.(interface{ Stats() markov.Stats }); ok {
		stats := s.Stats()
		telemetry.SetModelSize(stats.Vocabulary, stats.Nodes)
	}
	return nil
}

// Get returns the current model, or false when none has been loaded.
func (h *ModelHolder) Get() (markov.Model, bool) {
	e := h.cur.Load()
	if e == nil {
		return nil, false
	}
	return e.model, true
}

// LoadedAt reports when the current model was swapped in.
func (h *ModelHolder) LoadedAt() (time.Time, bool) {
	e := h.cur.Load()
	if e == nil {
		return time.Time{}, false
	}
	return e.loadedAt, true
}

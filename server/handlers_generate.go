package server

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"

	"github.com/subculture-collective/chatterchain/markov"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// maxSampleCount caps the per-request K so one request can't demand unbounded
// sampling work.
const maxSampleCount = 16

// HandleGenerate samples the loaded model. Query params: seed (whitespace
// separated tokens, truncated to the model order), k (sample-best count,
// default 4).
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	model, ok := h.modelOr503(w)
	if !ok {
		return
	}

	seed := strings.Fields(r.URL.Query().Get("seed"))
	truncated := false
	if max := model.Order(); len(seed) > max {
		seed = seed[:max]
		truncated = true
	}
	k := parseIntQuery(r, "k", 4)
	if k < 1 {
		k = 1
	}
	if k > maxSampleCount {
		k = maxSampleCount
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	var tokens []string
	var err error
	telemetry.TimeFunc(telemetry.GenerationDuration, func() {
		tokens, err = model.SampleBest(seed, rng, k)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, markov.ErrSeedTooLong) || errors.Is(err, markov.ErrBadSampleCount) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	telemetry.GenerationsTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"text":           strings.Join(tokens, " "),
		"tokens":         tokens,
		"samples":        k,
		"seed_truncated": truncated,
	})
}

// HandleModel reports order, metadata, and size of the loaded model.
func (h *Handlers) HandleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	model, ok := h.modelOr503(w)
	if !ok {
		return
	}
	out := map[string]any{
		"order":    model.Order(),
		"metadata": model.Metadata(),
	}
	if loadedAt, ok := h.models.LoadedAt(); ok {
		out["loaded_at"] = loadedAt
	}
	if s, ok := model.(interface{ Stats() markov.Stats }); ok {
		out["stats"] = s.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// HandleModelEdges lists the top successors for a context. Query params:
// context (up to order tokens), top (default 10).
func (h *Handlers) HandleModelEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	model, ok := h.modelOr503(w)
	if !ok {
		return
	}

	context := strings.Fields(r.URL.Query().Get("context"))
	edges, err := model.Edges(context)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, markov.ErrSeedTooLong) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	top := parseIntQuery(r, "top", 10)
	if top < 1 {
		top = 10
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Count > edges[j].Count })
	if len(edges) > top {
		edges = edges[:top]
	}
	if edges == nil {
		edges = []markov.Edge{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(edges)
}

func (h *Handlers) modelOr503(w http.ResponseWriter) (markov.Model, bool) {
	if h.models == nil {
		http.Error(w, "no model configured", http.StatusServiceUnavailable)
		return nil, false
	}
	model, ok := h.models.Get()
	if !ok {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		return nil, false
	}
	return model, true
}

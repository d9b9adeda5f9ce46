package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/subculture-collective/chatterchain/markov"
	"github.com/subculture-collective/chatterchain/telemetry"
)

// HandleAdminReload swaps in a freshly loaded model file. The trainer writes
// the file atomically, so the server never observes a partial model.
func (h *Handlers) HandleAdminReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.models == nil {
		http.Error(w, "no model configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.models.Load(); err != nil {
		slog.Error("model reload failed", slog.String("path", h.models.Path()), slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	telemetry.ModelReloads.Inc()

	model, _ := h.models.Get()
	out := map[string]any{
		"status": "reloaded",
		"order":  model.Order(),
	}
	if s, ok := model.(interface{ Stats() markov.Stats }); ok {
		out["stats"] = s.Stats()
	}
	slog.Info("model reloaded", slog.String("path", h.models.Path()), slog.Int("order", model.Order()), slog.String("component", "http"))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

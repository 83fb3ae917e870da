package viewer

import (
	"encoding/json"
	"net/http"

	"github.com/local/traceview/internal/rendercache"
	"github.com/local/traceview/internal/statuscheck"
)

// handleStatus reports subsystem readiness plus render cache figures
// as JSON for dashboards and smoke checks.
func (v *Viewer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload := struct {
		statuscheck.Summary
		Cache rendercache.Stats `json:"render_cache"`
	}{
		Summary: v.status.Summary(r.Context()),
		Cache:   v.cache.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

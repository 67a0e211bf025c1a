package api

import (
	"encoding/json"
	"net/http"

	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/refrate"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // where PUT persists changes
}

// handleGetConfig returns the current (running) configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := ConfigResponse{Config: s.cfg, ConfigFile: s.configPath}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

// handleUpdateConfig overlays the fields present in the body onto the
// running config, validates and persists the result. A new rate source is
// built when the rates section changes. Listener and engine settings take
// effect on restart.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneConfig(s.cfg)
	if err := json.NewDecoder(r.Body).Decode(updated); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := updated.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rates := s.rates
	if updated.Rates != s.cfg.Rates {
		src, err := refrate.New(updated.Rates)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rates = src
	}

	if err := config.SaveToFile(updated, s.configPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}
	s.cfg = updated
	s.rates = rates

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ConfigResponse{Config: s.cfg, ConfigFile: s.configPath},
	})
}

// handleGetSettings reports where each market assumption comes from.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckSettings(s.config()),
	})
}

// cloneConfig deep-copies cfg so a partial decode cannot alias the running
// slices.
func cloneConfig(cfg *config.Config) *config.Config {
	out := *cfg
	out.API.CORSOrigins = append([]string(nil), cfg.API.CORSOrigins...)
	return &out
}

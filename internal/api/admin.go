package api

import (
	"encoding/json"
	"net/http"

	"github.com/varsilias/chatease/internal/ollama"
	"github.com/varsilias/chatease/pkg/utils"
)

type Admin struct{ oc *ollama.Client }

func NewAdmin(oc *ollama.Client) *Admin { return &Admin{oc: oc} }

// PullModel POST /admin/models/pull { name }
func (a *Admin) PullModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if req.Name == "" {
		utils.JSON(w, http.StatusBadRequest, map[string]any{"error": "name required"})
		return
	}
	if err := a.oc.Pull(r.Context(), req.Name); err != nil {
		utils.JSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

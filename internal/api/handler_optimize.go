package api

import (
	"net/http"

	"github.com/routewise/routewise/internal/service"
)

// HandleOptimize returns a handler for POST /api/v1/routes/optimize.
func HandleOptimize(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.OptimizeRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}
		result, err := core.Optimize(r.Context(), TenantID(r), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

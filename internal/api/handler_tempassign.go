package api

import (
	"net/http"

	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/service"
)

type setTempAssignmentRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	TechID     string `json:"tech_id"`
	ServiceDay string `json:"service_day" validate:"required"`
}

// HandleSetTempAssignment returns a handler for POST /api/v1/temp-assignments.
func HandleSetTempAssignment(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setTempAssignmentRequest
		if !decodeValidBody(w, r, &req) {
			return
		}
		day, err := model.ParseWeekday(req.ServiceDay)
		if err != nil {
			writeInvalidArgument(w, err.Error())
			return
		}
		result, svcErr := core.SetTempAssignment(r.Context(), TenantID(r), req.CustomerID, req.TechID, day)
		if svcErr != nil {
			writeServiceError(w, svcErr)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

// HandleListTempAssignments returns a handler for GET /api/v1/temp-assignments.
func HandleListTempAssignments(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := core.ListTempAssignments(TenantID(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		pg, ok := parsePaginationOrWriteInvalid(w, r)
		if !ok {
			return
		}
		WritePage(w, http.StatusOK, all, pg)
	}
}

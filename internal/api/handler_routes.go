package api

import (
	"net/http"

	"github.com/routewise/routewise/internal/service"
)

type saveRoutesRequest struct {
	Routes []service.RouteResult `json:"routes"`
}

type saveRoutesResponse struct {
	RouteIDs []string `json:"route_ids"`
}

// HandleSaveDayRoutes returns a handler for POST /api/v1/routes/days/{day}.
// The save replaces every persisted route for (tenant, day).
func HandleSaveDayRoutes(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := requireWeekdayPathParam(w, r, "day")
		if !ok {
			return
		}
		var req saveRoutesRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}
		ids, err := core.SaveRoutes(TenantID(r), day, req.Routes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, saveRoutesResponse{RouteIDs: ids})
	}
}

// HandleGetDayRoutes returns a handler for GET /api/v1/routes/days/{day}.
// An optional date query parameter selects the route date; default is today.
func HandleGetDayRoutes(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := requireWeekdayPathParam(w, r, "day")
		if !ok {
			return
		}
		date, ok := parseOptionalDateQuery(w, r, "date")
		if !ok {
			return
		}
		views, err := core.GetDayRoutes(r.Context(), TenantID(r), day, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"routes": views})
	}
}

// HandleDeleteDayRoutes returns a handler for DELETE /api/v1/routes/days/{day}.
func HandleDeleteDayRoutes(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, ok := requireWeekdayPathParam(w, r, "day")
		if !ok {
			return
		}
		n, err := core.DeleteDayRoutes(TenantID(r), day)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]int64{"deleted": n})
	}
}

// HandleGetRoute returns a handler for GET /api/v1/routes/{route_id}.
func HandleGetRoute(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireUUIDPathParam(w, r, "route_id", "route_id")
		if !ok {
			return
		}
		view, err := core.GetRouteDetail(TenantID(r), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

type reorderStopsRequest struct {
	Stops []service.StopOrder `json:"stops" validate:"min=1"`
}

// HandleReorderStops returns a handler for PATCH /api/v1/routes/{route_id}/stops.
func HandleReorderStops(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireUUIDPathParam(w, r, "route_id", "route_id")
		if !ok {
			return
		}
		var req reorderStopsRequest
		if !decodeValidBody(w, r, &req) {
			return
		}
		view, err := core.ReorderStops(TenantID(r), id, req.Stops)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

type moveStopRequest struct {
	TargetRouteID string `json:"target_route_id" validate:"required"`
	NewSequence   int    `json:"new_sequence"`
}

type moveStopResponse struct {
	SourceRoute *service.RouteView `json:"source_route"`
	TargetRoute *service.RouteView `json:"target_route"`
}

// HandleMoveStop returns a handler for POST /api/v1/stops/{stop_id}/actions/move.
func HandleMoveStop(core *service.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stopID, ok := requireUUIDPathParam(w, r, "stop_id", "stop_id")
		if !ok {
			return
		}
		var req moveStopRequest
		if !decodeValidBody(w, r, &req) {
			return
		}
		if !ValidateUUID(req.TargetRouteID) {
			writeInvalidArgument(w, "target_route_id: must be a valid UUID")
			return
		}
		source, target, err := core.MoveStop(TenantID(r), stopID, req.TargetRouteID, req.NewSequence)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, moveStopResponse{SourceRoute: source, TargetRoute: target})
	}
}

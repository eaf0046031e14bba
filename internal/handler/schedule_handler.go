package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/openparatransit/paraplan/internal/directions"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/internal/scheduler"
	"github.com/openparatransit/paraplan/pkg/tz"
)

// ScheduleHandler handles the synchronous scheduling endpoint.
type ScheduleHandler struct {
	sched *scheduler.Scheduler
}

// NewScheduleHandler creates a handler wired to the scheduler.
func NewScheduleHandler(sched *scheduler.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{sched: sched}
}

// Calculate handles POST /v1_webapp_auto_scheduling
//
// Runs the scheduler synchronously and returns the complete plan.
func (h *ScheduleHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON body",
		})
		return
	}

	resp, err := h.sched.Schedule(r.Context(), &req)
	if err != nil {
		status, payload := classifyScheduleError(err)
		writeJSON(w, status, payload)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// classifyScheduleError maps scheduling failures onto HTTP responses. All of
// them are fatal to the request; the distinction is only in the message.
func classifyScheduleError(err error) (int, map[string]string) {
	switch {
	case errors.Is(err, tz.ErrInvalidDate), errors.Is(err, tz.ErrInvalidZone):
		return http.StatusInternalServerError, map[string]string{
			"error":   "invalid_time",
			"message": err.Error(),
		}
	case errors.Is(err, scheduler.ErrNoRoute):
		return http.StatusInternalServerError, map[string]string{
			"error":   "no_route",
			"message": err.Error(),
		}
	case errors.Is(err, directions.ErrRouteUnavailable):
		return http.StatusInternalServerError, map[string]string{
			"error":   "routing_unavailable",
			"message": err.Error(),
		}
	default:
		log.Printf("[handler] schedule error: %v", err)
		return http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		}
	}
}

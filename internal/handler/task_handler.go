package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/internal/task"
)

// TaskHandler handles asynchronous task intake and status lookup.
type TaskHandler struct {
	store task.Store
}

// NewTaskHandler creates a handler wired to the task store.
func NewTaskHandler(store task.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// Enqueue handles POST /v1_webapp_auto_scheduling/enqueue
//
// Persists the request as a PENDING task and returns its id; the dispatcher
// picks it up on a later tick.
func (h *TaskHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON body",
		})
		return
	}

	taskID, err := h.store.CreateTask(r.Context(), &req)
	if err != nil {
		log.Printf("[handler] enqueue error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to enqueue task",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"taskId": taskID})
}

// GetTask handles GET /v1_webapp_auto_scheduling/{taskId}
//
// Returns the task status, with the result envelope once COMPLETED or the
// error message once FAILED.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	status, err := h.store.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "not_found",
				"message": "Task not found.",
			})
			return
		}
		log.Printf("[handler] get task error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		})
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Package task implements the asynchronous scheduling pipeline: durable
// intake of requests into a persistent queue, a polling dispatcher that
// claims pending tasks in bounded batches, and a worker pool that runs the
// scheduler per task and writes back the outcome.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
)

var (
	// ErrNotFound is returned when no task exists for the given id.
	ErrNotFound = errors.New("task not found")

	// ErrDuplicate is returned when a task id collides on insert.
	// With UUID v4 ids this is vanishingly unlikely; callers may retry.
	ErrDuplicate = errors.New("duplicate task id")
)

// Task is the persisted scheduling job. DocID is the store's internal id
// (ObjectID hex for Mongo, row id for Postgres); TaskID is the public UUID.
type Task struct {
	DocID        string
	TaskID       string
	RequestBody  string
	Status       model.TaskStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ErrorMessage string
	ResponseBody string
}

// StatusResponse is the public view of a task returned by the GET endpoint.
type StatusResponse struct {
	TaskID string                  `json:"taskId"`
	Status model.TaskStatus        `json:"status"`
	Result *model.ScheduleResponse `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Store is the persistent task queue. All operations perform I/O.
type Store interface {
	// CreateTask persists the request with status PENDING and returns the
	// new public task id.
	CreateTask(ctx context.Context, req *model.ScheduleRequest) (string, error)

	// GetTask returns the public view of a task by its public id.
	GetTask(ctx context.Context, taskID string) (*StatusResponse, error)

	// ClaimBatch atomically moves up to n PENDING tasks to PROCESSING and
	// returns their internal doc ids. Two concurrent dispatchers never
	// claim the same task.
	ClaimBatch(ctx context.Context, n int) ([]string, error)

	// GetByDocID loads a claimed task by its internal id.
	GetByDocID(ctx context.Context, docID string) (*Task, error)

	// CompleteTask marks the task COMPLETED with the serialized response.
	CompleteTask(ctx context.Context, docID, responseBody string) error

	// FailTask marks the task FAILED with the error message.
	FailTask(ctx context.Context, docID, errorMessage string) error
}

// NewStore builds the task store backend selected by configuration.
func NewStore(ctx context.Context, cfg config.TaskConfig) (Store, error) {
	switch cfg.StoreType {
	case "mongodb":
		return NewMongoStore(ctx, cfg)
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("task: unknown TASK_STORE_TYPE %q", cfg.StoreType)
	}
}

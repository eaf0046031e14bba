package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/pkg/db"
)

// PostgresStore is the relational task store. The claim is a single
// UPDATE over a FOR UPDATE SKIP LOCKED selection, so concurrent dispatchers
// partition the pending set without retries. Postgres has no TTL indexes;
// expired rows are swept opportunistically on each claim.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

const tasksSchema = `
CREATE TABLE IF NOT EXISTS scheduling_tasks (
	id            BIGSERIAL PRIMARY KEY,
	task_id       UUID NOT NULL UNIQUE,
	request_body  TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	response_body TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_scheduling_tasks_pending
	ON scheduling_tasks (created_at) WHERE status = 'PENDING';
`

// NewPostgresStore connects to Postgres and ensures the tasks table.
func NewPostgresStore(ctx context.Context, cfg config.TaskConfig) (*PostgresStore, error) {
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}

	if _, err := pool.Exec(ctx, tasksSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("task: ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool, ttl: cfg.TTL}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) CreateTask(ctx context.Context, req *model.ScheduleRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("task: encode request: %w", err)
	}

	taskID := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scheduling_tasks (task_id, request_body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, taskID, string(body), model.TaskPending, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("task: insert: %w", err)
	}
	return taskID, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (*StatusResponse, error) {
	var (
		status       model.TaskStatus
		responseBody string
		errorMessage string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT status, response_body, error_message
		FROM scheduling_tasks
		WHERE task_id = $1
	`, taskID).Scan(&status, &responseBody, &errorMessage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task: get %s: %w", taskID, err)
	}
	return statusResponse(taskID, status, responseBody, errorMessage)
}

func (s *PostgresStore) ClaimBatch(ctx context.Context, n int) ([]string, error) {
	// Opportunistic TTL sweep; the dispatcher is the only periodic caller.
	cutoff := time.Now().UTC().Add(-s.ttl)
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM scheduling_tasks WHERE updated_at < $1`, cutoff); err != nil {
		return nil, fmt.Errorf("task: ttl sweep: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE scheduling_tasks
		SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM scheduling_tasks
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id
	`, model.TaskProcessing, model.TaskPending, n)
	if err != nil {
		return nil, fmt.Errorf("task: claim: %w", err)
	}
	defer rows.Close()

	var docIDs []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("task: claim scan: %w", err)
		}
		docIDs = append(docIDs, strconv.FormatInt(id, 10))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task: claim rows: %w", err)
	}
	return docIDs, nil
}

func (s *PostgresStore) GetByDocID(ctx context.Context, docID string) (*Task, error) {
	id, err := strconv.ParseInt(docID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("task: bad doc id %q: %w", docID, err)
	}

	t := &Task{DocID: docID}
	err = s.pool.QueryRow(ctx, `
		SELECT task_id, request_body, status, created_at, updated_at, error_message, response_body
		FROM scheduling_tasks
		WHERE id = $1
	`, id).Scan(&t.TaskID, &t.RequestBody, &t.Status, &t.CreatedAt, &t.UpdatedAt,
		&t.ErrorMessage, &t.ResponseBody)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task: load doc %s: %w", docID, err)
	}
	return t, nil
}

func (s *PostgresStore) CompleteTask(ctx context.Context, docID, responseBody string) error {
	return s.finish(ctx, docID, model.TaskCompleted, `response_body`, responseBody)
}

func (s *PostgresStore) FailTask(ctx context.Context, docID, errorMessage string) error {
	return s.finish(ctx, docID, model.TaskFailed, `error_message`, errorMessage)
}

func (s *PostgresStore) finish(ctx context.Context, docID string, status model.TaskStatus, column, value string) error {
	id, err := strconv.ParseInt(docID, 10, 64)
	if err != nil {
		return fmt.Errorf("task: bad doc id %q: %w", docID, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduling_tasks SET status = $1, updated_at = now(), `+column+` = $2 WHERE id = $3`,
		status, value, id)
	if err != nil {
		return fmt.Errorf("task: finish doc %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

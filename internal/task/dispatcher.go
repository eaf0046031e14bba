package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
)

// Runner executes one scheduling request; satisfied by scheduler.Scheduler.
type Runner interface {
	Schedule(ctx context.Context, req *model.ScheduleRequest) (*model.ScheduleResponse, error)
}

// Dispatcher polls the task store at a fixed interval, claims pending tasks
// in bounded batches, and fans them out to a bounded worker pool.
//
// The dispatch runs inline in the tick loop and waits for its whole batch,
// so ticks never overlap; the semaphore blocks claiming faster than workers
// can process (backpressure by blocking, not dropping).
type Dispatcher struct {
	store     Store
	runner    Runner
	interval  time.Duration
	batchSize int
	workers   int
}

// NewDispatcher creates a dispatcher sized by the processor configuration.
func NewDispatcher(store Store, runner Runner, cfg config.ProcessorConfig) *Dispatcher {
	return &Dispatcher{
		store:     store,
		runner:    runner,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		workers:   cfg.ThreadNumber,
	}
}

// Run loops until the context is cancelled. Call it from a goroutine at
// service start.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("[dispatcher] started: interval=%s batch=%d workers=%d",
		d.interval, d.batchSize, d.workers)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[dispatcher] stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			d.dispatchOnce(ctx)
		}
	}
}

// dispatchOnce claims one batch and processes it to completion.
func (d *Dispatcher) dispatchOnce(ctx context.Context) {
	docIDs, err := d.store.ClaimBatch(ctx, d.batchSize)
	if err != nil {
		log.Printf("[dispatcher] claim failed: %v", err)
		return
	}
	if len(docIDs) == 0 {
		return
	}
	log.Printf("[dispatcher] claimed %d task(s)", len(docIDs))

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for _, docID := range docIDs {
		sem <- struct{}{}
		wg.Add(1)
		go func(docID string) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := d.process(ctx, docID); err != nil {
				log.Printf("[worker] task doc %s failed: %v", docID, err)
				return
			}
			log.Printf("[worker] task doc %s completed", docID)
		}(docID)
	}

	wg.Wait()
}

// process is the worker body: load the claimed task, run the scheduler, and
// persist the outcome. A scheduler failure marks the task FAILED and is
// still returned so the dispatcher logs it.
func (d *Dispatcher) process(ctx context.Context, docID string) error {
	t, err := d.store.GetByDocID(ctx, docID)
	if err != nil {
		// A claimed doc must exist; its absence means the claim raced.
		return fmt.Errorf("load claimed task: %w", err)
	}

	var req model.ScheduleRequest
	if err := json.Unmarshal([]byte(t.RequestBody), &req); err != nil {
		decodeErr := fmt.Errorf("decode request body: %w", err)
		if failErr := d.store.FailTask(ctx, docID, decodeErr.Error()); failErr != nil {
			log.Printf("[worker] marking task %s failed: %v", t.TaskID, failErr)
		}
		return decodeErr
	}

	resp, err := d.runner.Schedule(ctx, &req)
	if err != nil {
		if failErr := d.store.FailTask(ctx, docID, err.Error()); failErr != nil {
			log.Printf("[worker] marking task %s failed: %v", t.TaskID, failErr)
		}
		return err
	}

	body, err := json.Marshal(resp)
	if err != nil {
		encodeErr := fmt.Errorf("encode response: %w", err)
		if failErr := d.store.FailTask(ctx, docID, encodeErr.Error()); failErr != nil {
			log.Printf("[worker] marking task %s failed: %v", t.TaskID, failErr)
		}
		return encodeErr
	}

	return d.store.CompleteTask(ctx, docID, string(body))
}

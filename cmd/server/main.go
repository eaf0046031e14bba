package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/directions"
	"github.com/openparatransit/paraplan/internal/handler"
	"github.com/openparatransit/paraplan/internal/middleware"
	"github.com/openparatransit/paraplan/internal/scheduler"
	"github.com/openparatransit/paraplan/internal/task"
	"github.com/openparatransit/paraplan/pkg/cache"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Directions cache ────────────────────────────────
	directionsCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
	if directionsCache == nil {
		log.Println("[cache] disabled")
	} else {
		log.Printf("[cache] %s backend ready", cfg.Cache.Type)
	}

	// ── Task store ──────────────────────────────────────
	store, err := task.NewStore(ctx, cfg.Task)
	if err != nil {
		log.Fatalf("failed to initialize task store: %v", err)
	}
	log.Printf("[task] %s store ready", cfg.Task.StoreType)

	// ── Initialize layers ───────────────────────────────
	finder := directions.NewClient(cfg.Routing, directionsCache)
	sched := scheduler.New(finder, scheduler.Margins{
		BeforePickup:     cfg.Scheduling.BeforePickup,
		AfterPickup:      cfg.Scheduling.AfterPickup,
		DropoffUnloading: cfg.Scheduling.DropoffUnloading,
	})

	scheduleHandler := handler.NewScheduleHandler(sched)
	taskHandler := handler.NewTaskHandler(store)

	// ── Dispatcher ──────────────────────────────────────
	dispatcher := task.NewDispatcher(store, sched, cfg.Processor)
	go dispatcher.Run(ctx)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	router.HandleFunc("/", handler.Root).Methods(http.MethodGet)
	router.HandleFunc("/v1_webapp_auto_scheduling", scheduleHandler.Calculate).Methods(http.MethodPost)
	router.HandleFunc("/v1_webapp_auto_scheduling/enqueue", taskHandler.Enqueue).Methods(http.MethodPost)
	router.HandleFunc("/v1_webapp_auto_scheduling/{taskId}", taskHandler.GetTask).Methods(http.MethodGet)

	originCheck := middleware.OriginCheck(cfg.Server.EnableOriginCheck, cfg.Server.AcceptableOrigins)
	root := middleware.RequestLogger(middleware.Recoverer(originCheck(router)))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("[http] listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[http] shutting down...")

	cancel() // stops the dispatcher

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("[http] server stopped")
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/receipts-reconciler/internal/async"
	"github.com/joseph-ayodele/receipts-reconciler/internal/export"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ingest"
	"github.com/joseph-ayodele/receipts-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/receipts-reconciler/internal/repository"
	"github.com/joseph-ayodele/receipts-reconciler/internal/server"
)

const shutdownTimeout = 15 * time.Second

// daemon is the long-running part shared by serve and watch.
type daemon struct {
	db      *repository.DB
	st      *state
	proc    *pipeline.Processor
	queue   *async.ProcessorQueue
	release func()
}

func (a *app) startRuntime(ctx context.Context) (*daemon, error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return nil, err
	}
	st, err := a.loadState(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	locker, closeLocker, err := a.locker(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	proc, err := a.processor(ctx, st.docs, locker)
	if err != nil {
		closeLocker()
		db.Close()
		return nil, err
	}
	queue := async.NewProcessorQueue(proc, a.logger,
		async.WithWorkers(a.cfg.Queue.Workers),
		async.WithQueueSize(a.cfg.Queue.Size),
		async.WithProcessTimeout(a.cfg.Queue.Timeout),
	)
	return &daemon{db: db, st: st, proc: proc, queue: queue, release: closeLocker}, nil
}

// stopRuntime drains the queue, persists the state and closes connections.
func (a *app) stopRuntime(rt *daemon) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	rt.queue.Shutdown(ctx)
	if err := a.saveState(ctx, rt.db, rt.st); err != nil {
		a.logger.Error("state.save_failed", "error", err)
	}
	rt.release()
	rt.db.Close()
}

func (a *app) startWatcher(ctx context.Context, dir string, q *async.ProcessorQueue) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("inbox dir: %w", err)
	}
	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		SkipHidden:  true,
	}, a.logger)
	if err != nil {
		return err
	}
	go ingest.Feed(ctx, q, events, a.logger)
	a.logger.Info("ingest.watching", "dir", dir)
	return nil
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background extraction workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.configPath, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	rt, err := a.startRuntime(ctx)
	if err != nil {
		return err
	}
	defer a.stopRuntime(rt)

	categorizer, err := a.categorizer(ctx)
	if err != nil {
		return err
	}

	if dir := a.cfg.Upload.InboxDir; dir != "" {
		if err := a.startWatcher(ctx, dir, rt.queue); err != nil {
			return err
		}
	}

	api := server.New(server.Config{
		UploadDir:      a.cfg.Upload.Dir,
		MaxUploadBytes: a.cfg.Upload.MaxBytes,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
	}, server.Deps{
		Documents:   rt.st.docs,
		Retrier:     rt.proc,
		Queue:       rt.queue,
		Book:        rt.st.book,
		Categorizer: categorizer,
		Exporter:    export.NewService(a.logger),
		Health: func(ctx context.Context) error {
			return rt.db.HealthCheck(ctx, 2*time.Second)
		},
	}, a.logger)

	httpSrv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		a.logger.Info("http.listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	var healthServer *health.Server
	if addr := a.cfg.Server.HealthAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			_ = httpSrv.Close()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			a.logger.Info("grpc.health.listening", "addr", addr)
			if err := grpcServer.Serve(lis); err != nil {
				serveErr <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err = <-serveErr:
		a.logger.Error("server.failed", "error", err)
	}

	if healthServer != nil {
		healthServer.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("http.shutdown", "error", serr)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return err
}

func newWatchCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Extract every file dropped into a directory until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags.configPath, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			dir := a.cfg.Upload.InboxDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no directory given and INBOX_DIR is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.startRuntime(ctx)
			if err != nil {
				return err
			}
			defer a.stopRuntime(rt)

			if err := a.startWatcher(ctx, dir, rt.queue); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"easy-ai/server/internal/config"
	servernet "easy-ai/server/internal/net"
	"easy-ai/server/internal/scenario"
	"easy-ai/server/internal/scheduler"
	"easy-ai/server/internal/telemetry"
	"easy-ai/server/logging"
	loggingSinks "easy-ai/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Logger telemetry.Logger
	// Stdout receives console sink output.
	Stdout io.Writer
	// Ready, when set, is called with the bound HTTP address once the
	// listener is up.
	Ready func(addr string)
}

func (o Options) normalized() Options {
	if o.Logger == nil {
		o.Logger = telemetry.WrapLogger(log.Default())
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// NewRouter builds the event router for the configured sinks. The returned
// close function shuts the router down and releases any opened file.
func NewRouter(cfg config.Config, stdout io.Writer) (*logging.Router, func(context.Context) error, error) {
	logConfig := cfg.LoggingConfig()
	var (
		sinks []logging.NamedSink
		file  *os.File
	)
	if logConfig.HasSink(logging.SinkConsole) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(stdout, logConfig.Console)})
	}
	if logConfig.HasSink(logging.SinkJSON) {
		var w io.Writer = stdout
		if logConfig.JSON.FilePath != "" {
			f, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("open event log: %w", err)
			}
			file, w = f, f
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(w, logConfig.JSON.FlushInterval)})
	}
	if logConfig.HasSink(logging.SinkMemory) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkMemory, Sink: loggingSinks.NewBoundedMemorySink(logConfig.Memory.Capacity)})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	closeFn := func(ctx context.Context) error {
		err := router.Close(ctx)
		if file != nil {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}
	return router, closeFn, nil
}

// Run builds the world, starts the tick loop and serves the inspection
// surface until ctx is cancelled or the listener fails.
func Run(ctx context.Context, cfg config.Config, opts Options) error {
	opts = opts.normalized()
	logger := opts.Logger

	router, closeRouter, err := NewRouter(cfg, opts.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if cerr := closeRouter(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}
	var sched *scheduler.Scheduler
	world, err := scenario.BuildWorld(ctx, cfg, scenario.Deps{
		Publisher: router,
		Logger:    logger,
		Tick: func() uint64 {
			if sched == nil {
				return 0
			}
			return sched.TickCount()
		},
	})
	if err != nil {
		return fmt.Errorf("build world: %w", err)
	}
	logger.Printf("world ready: %d nodes, %d table entries (loaded=%v)", world.Graph.Len(), world.Table.Len(), world.Loaded)

	sched = scheduler.New(cfg.SchedulerConfig(world.Ground()),
		scheduler.WithNavigation(world.Navigator),
		scheduler.WithPublisher(router),
		scheduler.WithLogger(telemetry.Prefixed(logger, "[scheduler] ")),
		scheduler.WithMetrics(telemetry.WrapMetrics(metrics)),
	)
	agents := scenario.Populate(sched, world, cfg)
	logger.Printf("scenario %s started with %d agents", cfg.Scenario.Kind, len(agents))

	loop := scheduler.NewLoop(sched, cfg.LoopConfig(), scheduler.LoopHooks{
		AfterStep: func(result scheduler.LoopStepResult) {
			metrics.Store("loop_tick_duration_ms", uint64(result.Duration.Milliseconds()))
		},
	}, logging.SystemClock{}, router, &telemetry.Counters{})

	var recent servernet.RecentEvents
	if memory, ok := router.Sink(logging.SinkMemory).(*loggingSinks.MemorySink); ok {
		recent = memory
	}
	handler := servernet.NewHTTPHandler(loop, servernet.HTTPHandlerConfig{
		Logger:          telemetry.Prefixed(logger, "[http] "),
		Metrics:         metrics,
		Router:          router,
		Events:          recent,
		TickRate:        cfg.Simulation.TickRate,
		StreamInterval:  cfg.StreamInterval(),
		EnablePprof:     cfg.HTTP.EnablePprof,
		DefaultMessages: cfg.Messages.Max,
	})
	return serve(ctx, loop, &http.Server{Addr: cfg.HTTP.Address, Handler: handler}, opts)
}

func serve(ctx context.Context, loop *scheduler.Loop, srv *http.Server, opts Options) error {
	logger := opts.Logger
	addr := srv.Addr
	if addr == "" {
		addr = ":8080"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	logger.Printf("server listening on %s", listener.Addr())
	if opts.Ready != nil {
		opts.Ready(listener.Addr().String())
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		loop.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

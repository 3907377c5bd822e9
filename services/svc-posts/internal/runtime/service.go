package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"
)

type (
	// ServiceCtx owns the lifecycle of the posts service: dependency
	// wiring, both listeners and the ordered shutdown.
	ServiceCtx struct {
		deps      *dependencies
		signals   chan os.Signal
		ready     chan struct{}
		serverCtx context.Context
		stop      context.CancelFunc
	}

	ServiceOption func(*ServiceCtx)
)

// WithServiceTermination replaces the channel that receives SIGINT/SIGTERM.
func WithServiceTermination(ch chan os.Signal) ServiceOption {
	return func(s *ServiceCtx) {
		s.signals = ch
	}
}

// WithWaitingForServer makes WaitForServer block until both servers listen.
func WithWaitingForServer() ServiceOption {
	return func(s *ServiceCtx) {
		s.ready = make(chan struct{})
	}
}

func New(opts ...ServiceOption) *ServiceCtx {
	s := &ServiceCtx{signals: make(chan os.Signal, 1)}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run blocks until a termination signal arrives or a server fails.
func (s *ServiceCtx) Run() {
	s.serverCtx, s.stop = context.WithCancel(context.Background())

	deps, err := initializeDependencies(s.serverCtx, append(defaultOptions(s.serverCtx), serverOptions()...)...)
	if err != nil {
		log.Fatalf("failed to build service: %v", err)
	}

	s.deps = deps

	if err := s.serve(); err != nil {
		s.deps.cleanup(context.Background())
		log.Fatalf("failed to start service: %v", err)
	}

	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM)
	s.watchConfig()

	select {
	case <-s.serverCtx.Done():
	case sig := <-s.signals:
		s.deps.infra.logger.Info().Str("signal", sig.String()).Msg("termination signal received")
	}

	s.shutdown()
}

// WaitForServer returns once both listeners are bound. Without
// WithWaitingForServer it returns immediately.
func (s *ServiceCtx) WaitForServer() {
	if s.ready != nil {
		<-s.ready
	}
}

// serve binds both listeners up front so a busy port fails the start
// instead of a background goroutine.
func (s *ServiceCtx) serve() error {
	infra := s.deps.infra

	httpListener, err := net.Listen("tcp", infra.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", infra.httpServer.Addr, err)
	}

	grpcCfg := s.deps.config.GRPCServer
	grpcAddr := net.JoinHostPort(grpcCfg.Host, strconv.FormatUint(uint64(grpcCfg.Port), 10))

	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpListener.Close()

		return fmt.Errorf("listening on %s: %w", grpcAddr, err)
	}

	s.background("http", httpListener.Addr(), func() error {
		if err := infra.httpServer.Serve(httpListener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	s.background("grpc", grpcListener.Addr(), func() error {
		return infra.grpcServer.Serve(grpcListener)
	})

	go infra.healthReporter.Run(s.serverCtx)

	if s.ready != nil {
		close(s.ready)
	}

	return nil
}

// background runs one server; a serve error cancels the service context.
func (s *ServiceCtx) background(name string, addr net.Addr, serve func() error) {
	serverLog := s.deps.infra.logger.With().Str("server", name).Logger()

	go func() {
		serverLog.Info().Str("address", addr.String()).Msg("server listening")

		if err := serve(); err != nil {
			serverLog.Error().Err(err).Msg("server stopped unexpectedly")
			s.stop()
		}
	}()
}

func (s *ServiceCtx) watchConfig() {
	if s.deps.configLoader == nil {
		return
	}

	outcomes := s.deps.configLoader.WatchConfigSignals(s.serverCtx)

	go func() {
		for err := range outcomes {
			if err != nil {
				s.deps.infra.logger.Error().Err(err).Msg("config reload failed")

				continue
			}

			s.deps.infra.logger.Info().Msg("config reloaded")
		}
	}()
}

// shutdown drains both servers before the backing resources are released.
// Exceeding HTTP_SHUTDOWN_TIMEOUT terminates the process.
func (s *ServiceCtx) shutdown() {
	svcLog := s.deps.infra.logger
	svcLog.Info().Msg("shutting down service")

	s.stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.config.HTTPServer.ShutdownTimeout)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			svcLog.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		}
	})
	defer stop()

	if err := s.drain(ctx); err != nil {
		svcLog.Error().Err(err).Msg("servers did not stop cleanly")
	}

	s.deps.cleanup(ctx)

	svcLog.Info().Msg("service shutdown complete")
}

func (s *ServiceCtx) drain(ctx context.Context) error {
	infra := s.deps.infra

	var group errgroup.Group

	group.Go(func() error {
		if err := infra.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		grpcCtx, cancel := context.WithTimeout(ctx, s.deps.config.GRPCServer.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})

		go func() {
			infra.grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			return nil
		case <-grpcCtx.Done():
			infra.grpcServer.Stop()

			return errors.New("gRPC server: graceful stop timed out")
		}
	})

	return group.Wait()
}

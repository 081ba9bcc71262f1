package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/strandline/quality-controller/internal/bridge"
	"github.com/strandline/quality-controller/internal/config"
	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/rpc"
	"github.com/strandline/quality-controller/internal/telemetry"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to config file (default $QUALITY_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("controller: %v", err)
	}
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config) error {
	var store *history.Store
	if cfg.HistoryDB != "" {
		s, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer s.Close()
		store = s
	}
	collector := telemetry.NewCollector()

	local, teardown, err := startLocal(ctx, cfg, store, collector)
	if err != nil {
		return err
	}
	defer teardown()

	surfaces := bridge.NewHandler(cfg.Controller, bridge.Options{Store: store, Collector: collector})
	wsMux := http.NewServeMux()
	wsMux.Handle("/surface", surfaces)
	wsServer := &http.Server{Addr: cfg.WSAddr, Handler: wsMux, ReadHeaderTimeout: 5 * time.Second}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", collector.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}

	grpcServer := grpc.NewServer()
	service := rpc.NewServer(local)
	service.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[BRIDGE] listening on %s/surface", cfg.WSAddr)
		return serveHTTP(wsServer)
	})
	g.Go(func() error {
		log.Printf("[METRICS] listening on %s/metrics", cfg.MetricsAddr)
		return serveHTTP(metricsServer)
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
		}
		log.Printf("[RPC] listening on %s", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		wsErr := wsServer.Shutdown(shutdownCtx)
		surfaces.Close()
		surfaces.Wait()
		service.Shutdown()
		stopGRPC(shutdownCtx, grpcServer)
		return errors.Join(wsErr, metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// stopGRPC drains in-flight calls, forcing the stop once ctx expires.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		log.Printf("[RPC] graceful stop timed out, forcing")
		srv.Stop()
	}
}

func serveHTTP(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	}
	return nil
}

// startLocal runs the controller of this process's own surface, the one
// the gRPC service exposes.
func startLocal(ctx context.Context, cfg config.Config, store *history.Store, collector *telemetry.Collector) (*controller.Controller, func(), error) {
	platform := device.NewNativePlatform(cfg.Native)
	clk := clock.New()

	var sink controller.Sink
	sessionID := "local"
	if store != nil {
		sess, err := store.OpenSession(device.DeviceProfile{})
		if err != nil {
			return nil, nil, fmt.Errorf("open local session: %w", err)
		}
		sessionID = sess.ID
		sink = history.NewSessionSink(store, sess.ID)
	}

	ctrl := controller.New(cfg.Controller, controller.Deps{
		Platform: platform,
		Frames:   perf.NewClockFrames(clk, 16*time.Millisecond),
		Memory:   perf.NewHeapReader(),
		Clock:    clk,
		Sink:     sink,
	})
	detach := collector.Attach(sessionID, ctrl)
	ctrl.Start(ctx)

	go func() {
		select {
		case <-ctrl.Ready():
		case <-ctx.Done():
			return
		}
		if store != nil {
			if err := store.UpdateProfile(sessionID, ctrl.Profile()); err != nil {
				log.Printf("[HIST] update profile %s: %v", sessionID, err)
			}
		}
		log.Printf("[CTRL] local surface ready at %s", ctrl.Level())
	}()

	return ctrl, func() {
		ctrl.Dispose()
		detach()
		if store != nil {
			if err := store.CloseSession(sessionID); err != nil {
				log.Printf("[HIST] close session %s: %v", sessionID, err)
			}
		}
	}, nil
}

// #endregion run

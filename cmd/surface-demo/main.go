package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gdamore/tcell/v2"

	"github.com/strandline/quality-controller/internal/config"
	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/surface"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to config file (default $QUALITY_CONFIG)")
	logPath := flag.String("log", "surface-demo.log", "log file; the terminal belongs to the scene")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "surface-demo: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(ctx context.Context, cfg config.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("new screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	var sink controller.Sink
	var store *history.Store
	var sessionID string
	if cfg.HistoryDB != "" {
		store, err = history.NewStore(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		sess, err := store.OpenSession(device.DeviceProfile{})
		if err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		sessionID = sess.ID
		sink = history.NewSessionSink(store, sess.ID)
		defer func() {
			if err := store.CloseSession(sessionID); err != nil {
				log.Printf("[HIST] close session %s: %v", sessionID, err)
			}
		}()
	}

	w, _ := screen.Size()
	native := cfg.Native
	native.ViewportWidth = w * 8
	platform := device.NewNativePlatform(native)

	clk := clock.New()
	ctrl := controller.New(cfg.Controller, controller.Deps{
		Platform: platform,
		Memory:   perf.NewHeapReader(),
		Clock:    clk,
		Sink:     sink,
	})
	app := surface.NewApp(screen, ctrl, surface.AppOptions{
		Clock:     clk,
		CellWidth: 8,
		OnResize:  platform.SetViewportWidth,
	})

	ctrl.Start(ctx)
	defer ctrl.Dispose()
	select {
	case <-ctrl.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if store != nil {
		if err := store.UpdateProfile(sessionID, ctrl.Profile()); err != nil {
			log.Printf("[HIST] update profile %s: %v", sessionID, err)
		}
	}

	return app.Run(ctx)
}

// #endregion run

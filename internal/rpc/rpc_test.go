package rpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region setup

type fixture struct {
	ctrl       *controller.Controller
	client     *Client
	server     *Server
	grpcServer *grpc.Server
}

// newFixture serves a started controller over an in-memory listener.
// The empty sysfs root yields no graphics context, so the initial tier is low.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	platform := device.NewNativePlatform(device.NativeConfig{Root: t.TempDir(), ViewportWidth: 1920})
	ctrl := controller.New(controller.DefaultConfig(), controller.Deps{
		Platform: platform,
		Clock:    clock.NewMock(),
	})
	ctrl.Start(context.Background())
	<-ctrl.Ready()
	t.Cleanup(ctrl.Dispose)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	service := NewServer(ctrl)
	service.Register(srv)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return &fixture{ctrl: ctrl, client: client, server: service, grpcServer: srv}
}

func callCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// #endregion setup

func TestGetLevelAndSettings(t *testing.T) {
	f := newFixture(t)
	ctx := callCtx(t)

	level, err := f.client.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, quality.LevelLow, level)

	settings, err := f.client.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, quality.SettingsFor(quality.LevelLow), settings)
}

func TestSetLevel(t *testing.T) {
	f := newFixture(t)
	ctx := callCtx(t)

	settings, err := f.client.SetLevel(ctx, quality.LevelHigh)
	require.NoError(t, err)
	assert.Equal(t, quality.SettingsFor(quality.LevelHigh), settings)
	assert.Equal(t, quality.LevelHigh, f.ctrl.Level())
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.SetLevel(callCtx(t), quality.Level("ultra"))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, quality.LevelLow, f.ctrl.Level())
}

func TestGetMetrics(t *testing.T) {
	f := newFixture(t)
	base := time.Unix(0, 0)
	f.ctrl.Tick(base)
	for i := 1; i <= 12; i++ {
		f.ctrl.Tick(base.Add(time.Duration(i) * time.Second / 12))
	}

	report, err := f.client.Metrics(callCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 12, report.FPS)
	assert.Equal(t, "critical", string(report.Rating))
	assert.True(t, report.Degraded)
	assert.True(t, report.Adapting)
	assert.Equal(t, quality.LevelMinimal, report.Target)
	assert.Equal(t, quality.LevelLow, report.Level)
	assert.True(t, report.Ready)
}

func TestReportVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := callCtx(t)
	_, err := f.client.SetLevel(ctx, quality.LevelHigh)
	require.NoError(t, err)

	level, err := f.client.ReportVisibility(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, quality.LevelMedium, level)

	level, err = f.client.ReportVisibility(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, quality.LevelMedium, level)
}

func TestWatchTransitions(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []controller.Transition
	done := make(chan error, 1)
	go func() {
		done <- f.client.Watch(ctx, func(tr controller.Transition) {
			mu.Lock()
			seen = append(seen, tr)
			mu.Unlock()
		})
	}()

	// Keep switching until the stream is subscribed and delivers one.
	levels := []quality.Level{quality.LevelHigh, quality.LevelMinimal}
	i := 0
	require.Eventually(t, func() bool {
		f.ctrl.SetLevel(levels[i%2])
		i++
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	first := seen[0]
	mu.Unlock()
	assert.Equal(t, controller.TriggerManual, first.Trigger)
	assert.True(t, first.To.Valid())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestShutdownEndsWatchForGracefulStop(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	seen := 0
	done := make(chan error, 1)
	go func() {
		done <- f.client.Watch(context.Background(), func(controller.Transition) {
			mu.Lock()
			seen++
			mu.Unlock()
		})
	}()

	levels := []quality.Level{quality.LevelHigh, quality.LevelMinimal}
	i := 0
	require.Eventually(t, func() bool {
		f.ctrl.SetLevel(levels[i%2])
		i++
		mu.Lock()
		defer mu.Unlock()
		return seen > 0
	}, 5*time.Second, 20*time.Millisecond)

	f.server.Shutdown()
	stopped := make(chan struct{})
	go func() {
		f.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("GracefulStop blocked on an open watch stream")
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after shutdown")
	}
}

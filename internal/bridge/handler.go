package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/quality"
	"github.com/strandline/quality-controller/internal/telemetry"
)

// #region handler
// Options are the optional collaborators of a Handler.
type Options struct {
	Store     *history.Store       // nil: no history
	Collector *telemetry.Collector // nil: no metrics
	Clock     clock.Clock          // nil: wall clock
	// HelloTimeout bounds the wait for the first message. Zero means 10s.
	HelloTimeout time.Duration
}

// Handler upgrades browser connections and runs one controller per surface.
type Handler struct {
	config   controller.Config
	opts     Options
	upgrader websocket.Upgrader

	wg     sync.WaitGroup
	mu     sync.Mutex
	live   map[*surface]struct{}
	closed bool
}

// NewHandler creates a websocket handler for browser surfaces.
func NewHandler(config controller.Config, opts Options) *Handler {
	if opts.HelloTimeout <= 0 {
		opts.HelloTimeout = 10 * time.Second
	}
	return &Handler{
		config: config,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		live: make(map[*surface]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the surface until it disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[BRIDGE] upgrade failed: %v", err)
		return
	}
	s := &surface{handler: h, conn: conn, done: make(chan struct{})}
	if !h.track(s) {
		closeGoingAway(conn)
		conn.Close()
		return
	}
	defer h.untrack(s)

	if err := s.run(r.Context()); err != nil {
		log.Printf("[BRIDGE] surface %s: %v", s.id, err)
	}
}

func (h *Handler) track(s *surface) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.live[s] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(s *surface) {
	h.mu.Lock()
	delete(h.live, s)
	h.mu.Unlock()
	h.wg.Done()
}

// Close refuses new surfaces and disconnects every live one. http.Server
// Shutdown does not touch hijacked connections, so servers call Close
// before Wait.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	live := make([]*surface, 0, len(h.live))
	for s := range h.live {
		live = append(live, s)
	}
	h.mu.Unlock()

	for _, s := range live {
		closeGoingAway(s.conn)
		s.conn.Close()
	}
	if len(live) > 0 {
		log.Printf("[BRIDGE] closed %d live surfaces", len(live))
	}
}

// Wait blocks until every served surface has been torn down.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func closeGoingAway(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// #endregion handler

// #region surface
// surface is one connected browser.
type surface struct {
	handler  *Handler
	conn     *websocket.Conn
	id       string
	platform *remotePlatform
	ctrl     *controller.Controller
	done     chan struct{}

	writeMu sync.Mutex
}

func (s *surface) run(ctx context.Context) error {
	defer s.conn.Close()

	hello, err := s.readHello()
	if err != nil {
		s.send(errorMessage(err))
		return err
	}

	teardown, err := s.mount(ctx, hello)
	if err != nil {
		s.send(errorMessage(err))
		return err
	}
	defer teardown()

	for {
		var msg Inbound
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return fmt.Errorf("read: %w", err)
			}
			return nil
		}
		if err := s.dispatch(msg); err != nil {
			s.send(errorMessage(err))
		}
	}
}

func (s *surface) readHello() (Hello, error) {
	s.conn.SetReadDeadline(time.Now().Add(s.handler.opts.HelloTimeout))
	defer s.conn.SetReadDeadline(time.Time{})

	var msg Inbound
	if err := s.conn.ReadJSON(&msg); err != nil {
		return Hello{}, fmt.Errorf("read hello: %w", err)
	}
	if msg.Type != TypeHello || msg.Hello == nil {
		return Hello{}, fmt.Errorf("expected %q as first message, got %q", TypeHello, msg.Type)
	}
	return *msg.Hello, nil
}

// mount wires a controller to the surface and starts it. The returned func
// tears it all down again.
func (s *surface) mount(ctx context.Context, hello Hello) (func(), error) {
	opts := s.handler.opts
	s.platform = newRemotePlatform(hello)

	var sink controller.Sink
	if opts.Store != nil {
		sess, err := opts.Store.OpenSession(device.DeviceProfile{IsTouch: hello.Touch})
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.id = sess.ID
		sink = history.NewSessionSink(opts.Store, sess.ID)
	} else {
		s.id = uuid.New().String()
	}

	s.ctrl = controller.New(s.handler.config, controller.Deps{
		Platform:   s.platform,
		Visibility: s.platform,
		Clock:      opts.Clock,
		Sink:       sink,
	})

	var detachMetrics func()
	if opts.Collector != nil {
		detachMetrics = opts.Collector.Attach(s.id, s.ctrl)
	}
	unsubscribe := s.ctrl.Subscribe(func(t controller.Transition) {
		if t.Trigger == controller.TriggerInitial {
			return
		}
		s.send(settingsMessage(s.id, t.To, t.Trigger))
	})

	if hello.Hidden {
		s.ctrl.SetHidden(true)
	}
	s.ctrl.Start(ctx)
	go s.announce()
	log.Printf("[BRIDGE] surface %s connected agent=%q width=%d", s.id, hello.UserAgent, hello.Width)

	return func() {
		close(s.done)
		unsubscribe()
		s.ctrl.Dispose()
		if detachMetrics != nil {
			detachMetrics()
		}
		if opts.Store != nil {
			if err := opts.Store.CloseSession(s.id); err != nil {
				log.Printf("[BRIDGE] close session %s: %v", s.id, err)
			}
		}
		log.Printf("[BRIDGE] surface %s disconnected", s.id)
	}, nil
}

// announce pushes the first settings once detection resolves and stores
// the resolved profile.
func (s *surface) announce() {
	select {
	case <-s.ctrl.Ready():
	case <-s.done:
		return
	}
	snap := s.ctrl.Snapshot()
	if store := s.handler.opts.Store; store != nil {
		if err := store.UpdateProfile(s.id, snap.Profile); err != nil {
			log.Printf("[BRIDGE] update profile %s: %v", s.id, err)
		}
	}
	s.send(settingsMessage(s.id, snap.Level, controller.TriggerInitial))
}

// #endregion surface

// #region dispatch
var errUnknownType = errors.New("unknown message type")

func (s *surface) dispatch(msg Inbound) error {
	switch msg.Type {
	case TypeFrame:
		s.ctrl.Tick(frameTime(msg.Timestamp))
	case TypeVisibility:
		s.platform.setHidden(msg.Hidden)
	case TypeResize:
		if msg.Width <= 0 {
			return fmt.Errorf("resize: width must be positive, got %d", msg.Width)
		}
		s.platform.setWidth(msg.Width)
	case TypeSetLevel:
		level, err := quality.Parse(msg.Level)
		if err != nil {
			return fmt.Errorf("set_level: %w", err)
		}
		s.ctrl.SetLevel(level)
	case TypeHello:
		return errors.New("hello already received")
	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
	return nil
}

// frameTime maps a performance.now() reading onto a time.Time. Only
// differences between readings matter to the sampler.
func frameTime(ms float64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(ms * float64(time.Millisecond)))
}

// send serializes writes; gorilla connections allow one writer at a time.
func (s *surface) send(msg Outbound) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := s.conn.WriteJSON(msg); err != nil {
		log.Printf("[BRIDGE] write to %s: %v", s.id, err)
	}
}

// #endregion dispatch

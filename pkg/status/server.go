// Package status serves health, statistics, a live event stream and
// Prometheus metrics for a running G1 audio program.
package status

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-g1audio/pkg/hub"
)

const maxEvents = 100

// Event is one recent program event, e.g. a handled voice command.
type Event struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // asr, tts, error
	Message string `json:"message"`
}

// StatsFunc returns a JSON-serializable snapshot.
type StatsFunc func() any

// Server is the status HTTP server.
type Server struct {
	app  *fiber.App
	addr string

	mu      sync.RWMutex
	sources map[string]StatsFunc
	healthy func() bool
	started time.Time

	// Event buffer (last maxEvents entries)
	events   []Event
	eventsMu sync.RWMutex

	// Live event stream for /ws/events
	eventHub *hub.Hub
	stopHub  context.CancelFunc
}

// NewServer creates a status server listening on addr. When reg is non-nil
// its metrics are served at /metrics and HTTP request metrics are recorded
// in it.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	s := &Server{
		addr:    addr,
		sources: make(map[string]StatsFunc),
		healthy: func() bool { return true },
		started: time.Now(),
		events:  make([]Event, 0, maxEvents),
	}
	s.eventHub = hub.New("events", nil)
	s.sources["events"] = func() any { return s.eventHub.Stats() }

	app := fiber.New(fiber.Config{
		AppName:               "G1 Audio Status",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	if reg != nil {
		fp := fiberprometheus.NewWithRegistry(reg, "g1audio", "g1audio", "status", nil)
		app.Use(fp.Middleware)
	}

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/events", s.handleEvents)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	if reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// AddStats registers a named statistics source for /api/stats.
func (s *Server) AddStats(name string, fn StatsFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = fn
}

// SetHealth sets the check behind /healthz.
func (s *Server) SetHealth(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = fn
}

// AddEvent records an event for /api/events.
func (s *Server) AddEvent(eventType, message string) {
	entry := Event{
		Time:    time.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if s.eventHub.IsRunning() {
		s.eventHub.BroadcastJSON(entry)
	}
}

// Watchers returns the number of connected /ws/events clients.
func (s *Server) Watchers() int {
	return s.eventHub.ClientCount()
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.runHub()
	return s.app.Listen(s.addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.runHub()
	return s.app.Listener(ln)
}

func (s *Server) runHub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopHub != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopHub = cancel
	go s.eventHub.Run(ctx)
}

// Shutdown disconnects watchers and gracefully stops the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.stopHub != nil {
		s.stopHub()
	}
	s.mu.Unlock()
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.mu.RLock()
	healthy := s.healthy()
	s.mu.RUnlock()

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	s.mu.RLock()
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	out := fiber.Map{"uptime": time.Since(s.started).Round(time.Second).String()}
	for _, name := range names {
		out[name] = s.sources[name]()
	}
	s.mu.RUnlock()

	return c.JSON(out)
}

// handleEventsWS replays the buffered events, then streams new ones.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	s.eventsMu.RLock()
	backlog := make([][]byte, 0, len(s.events))
	for _, e := range s.events {
		if data, err := json.Marshal(e); err == nil {
			backlog = append(backlog, data)
		}
	}
	s.eventsMu.RUnlock()

	s.eventHub.Serve(c, backlog)
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.eventsMu.RUnlock()

	return c.JSON(events)
}

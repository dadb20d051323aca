package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

var (
	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = errors.New("channel: not connected")

	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("channel: factory closed")

	// ErrInterface is returned when the configured network interface has
	// no usable address. Retrying cannot fix it.
	ErrInterface = errors.New("channel: network interface unusable")
)

// Subscription is an active topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// Factory owns the single broker connection shared by every publisher,
// subscriber and RPC client in the process.
type Factory struct {
	cfg    Config
	logger *slog.Logger
	topics *Topics

	// resolveInterface maps an interface name to the local IP to bind to.
	resolveInterface func(name string) (net.IP, error)

	// connect opens the broker connection.
	connect func(url string, options ...nats.Option) (*nats.Conn, error)

	mu     sync.RWMutex
	conn   *nats.Conn
	subs   []*nats.Subscription
	closed bool

	// Stats
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	requests         atomic.Int64
	reconnectCount   atomic.Int64
	initFailures     atomic.Int64
}

// New creates a new channel factory.
// Call Init() to open the connection.
func New(cfg Config, logger *slog.Logger) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Factory{
		cfg:              cfg,
		logger:           logger.With("component", "channel"),
		topics:           NewTopics(cfg.Prefix, cfg.DomainID),
		resolveInterface: InterfaceIPv4,
		connect:          nats.Connect,
	}, nil
}

// InterfaceIPv4 returns the first IPv4 address assigned to the named interface.
func InterfaceIPv4(name string) (net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("network interface %q: %w", name, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("network interface %q addresses: %w", name, err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}

	return nil, fmt.Errorf("network interface %q has no IPv4 address", name)
}

// Init opens the broker connection, bound to the configured interface.
// Calling Init on an initialized factory is a no-op.
func (f *Factory) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if f.conn != nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	opts, err := f.options()
	if err != nil {
		return err
	}

	f.logger.Info("connecting to broker",
		"url", f.cfg.URL,
		"domain_id", f.cfg.DomainID,
		"interface", f.cfg.NetworkInterface,
	)

	conn, err := f.connect(f.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", f.cfg.URL, err)
	}

	f.conn = conn

	f.logger.Info("connected to broker",
		"address", conn.ConnectedAddr(),
		"server_version", conn.ConnectedServerVersion(),
	)

	return nil
}

func (f *Factory) options() ([]nats.Option, error) {
	maxReconnects := f.cfg.MaxReconnectAttempts
	if maxReconnects == 0 {
		maxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name(f.cfg.Name),
		nats.ReconnectWait(f.cfg.ReconnectInterval),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				f.logger.Warn("broker connection lost", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			f.reconnectCount.Add(1)
			f.logger.Info("broker connection restored", "address", nc.ConnectedAddr())
		}),
	}

	if f.cfg.NetworkInterface != "" {
		ip, err := f.resolveInterface(f.cfg.NetworkInterface)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterface, err)
		}
		opts = append(opts, nats.SetCustomDialer(&net.Dialer{
			LocalAddr: &net.TCPAddr{IP: ip},
			Timeout:   2 * time.Second,
		}))
		f.logger.Debug("binding to network interface",
			"interface", f.cfg.NetworkInterface,
			"ip", ip.String(),
		)
	}

	return opts, nil
}

// InitWithRetry calls Init until the broker accepts the connection.
// A failed attempt waits ReconnectInterval before the next one, and the
// loop gives up after MaxReconnectAttempts failures (0 retries until ctx is
// done). Errors that another attempt cannot change, such as an unusable
// network interface, are returned at once.
func (f *Factory) InitWithRetry(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := f.Init(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrInterface) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.initFailures.Add(1)
		if limit := f.cfg.MaxReconnectAttempts; limit > 0 && attempt >= limit {
			return fmt.Errorf("broker unreachable after %d attempts: %w", attempt, err)
		}

		f.logger.Warn("broker unreachable, retrying",
			"url", f.cfg.URL,
			"attempt", attempt,
			"retry_in", f.cfg.ReconnectInterval,
			"error", err,
		)

		timer := time.NewTimer(f.cfg.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Topics returns the topics helper.
func (f *Factory) Topics() *Topics {
	return f.topics
}

// IsConnected returns true if the factory holds a live connection.
func (f *Factory) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.conn != nil && !f.closed && f.conn.IsConnected()
}

func (f *Factory) connection() (*nats.Conn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	if f.conn == nil {
		return nil, ErrNotConnected
	}
	return f.conn, nil
}

// Publish publishes data to a topic.
func (f *Factory) Publish(topic string, data []byte) error {
	conn, err := f.connection()
	if err != nil {
		return err
	}

	subject := f.topics.Subject(topic)
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	f.messagesSent.Add(1)
	return nil
}

// Subscribe registers handler for every message on topic.
// Messages for one subscription are delivered sequentially on a single
// goroutine owned by the connection.
func (f *Factory) Subscribe(topic string, handler func(data []byte)) (Subscription, error) {
	conn, err := f.connection()
	if err != nil {
		return nil, err
	}

	subject := f.topics.Subject(topic)
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		f.messagesReceived.Add(1)
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	f.track(sub)
	f.logger.Debug("subscribed to topic", "topic", topic, "subject", subject)

	return sub, nil
}

// Respond serves requests on topic, replying with handler's return value.
func (f *Factory) Respond(topic string, handler func(data []byte) []byte) (Subscription, error) {
	conn, err := f.connection()
	if err != nil {
		return nil, err
	}

	subject := f.topics.Subject(topic)
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		f.messagesReceived.Add(1)
		reply := handler(msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			f.logger.Warn("failed to send reply", "subject", subject, "error", err)
			return
		}
		f.messagesSent.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serve %s: %w", subject, err)
	}

	f.track(sub)
	f.logger.Debug("serving topic", "topic", topic, "subject", subject)

	return sub, nil
}

// Request sends data to topic and waits for a single reply.
// The context deadline bounds the wait.
func (f *Factory) Request(ctx context.Context, topic string, data []byte) ([]byte, error) {
	conn, err := f.connection()
	if err != nil {
		return nil, err
	}

	f.requests.Add(1)
	subject := f.topics.Subject(topic)

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", subject, err)
	}

	f.messagesSent.Add(1)
	f.messagesReceived.Add(1)
	return msg.Data, nil
}

// Flush waits until the broker has processed everything sent so far.
func (f *Factory) Flush(ctx context.Context) error {
	conn, err := f.connection()
	if err != nil {
		return err
	}
	return conn.FlushWithContext(ctx)
}

func (f *Factory) track(sub *nats.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
}

// Close drops all subscriptions and closes the connection.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	for _, sub := range f.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			f.logger.Warn("error closing subscription", "subject", sub.Subject, "error", err)
		}
	}
	f.subs = nil

	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}

	f.logger.Info("channel factory closed")
	return nil
}

// Stats returns factory statistics.
func (f *Factory) Stats() Stats {
	return Stats{
		Connected:        f.IsConnected(),
		MessagesSent:     f.messagesSent.Load(),
		MessagesReceived: f.messagesReceived.Load(),
		Requests:         f.requests.Load(),
		ReconnectCount:   f.reconnectCount.Load(),
		InitFailures:     f.initFailures.Load(),
	}
}

// Stats contains factory statistics.
type Stats struct {
	Connected        bool  `json:"connected"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	Requests         int64 `json:"requests"`

	// ReconnectCount counts connections restored after a drop.
	ReconnectCount int64 `json:"reconnect_count"`

	// InitFailures counts failed startup attempts in InitWithRetry.
	InitFailures int64 `json:"init_failures"`
}

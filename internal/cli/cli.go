// Package cli implements the G1 audio example programs. Each Run function
// takes its arguments and I/O explicitly and returns the process exit code,
// so the commands under cmd/ stay one-liners.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-g1audio/internal/config"
	g1log "github.com/teslashibe/go-g1audio/internal/log"
	"github.com/teslashibe/go-g1audio/pkg/audio"
	"github.com/teslashibe/go-g1audio/pkg/channel"
	"github.com/teslashibe/go-g1audio/pkg/status"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ErrUsage reports invalid arguments or flags.
var ErrUsage = errors.New("invalid arguments")

// Bus is the channel factory surface the programs use.
// *channel.Factory satisfies it.
type Bus interface {
	Publish(topic string, data []byte) error
	Subscribe(topic string, handler func(data []byte)) (channel.Subscription, error)
	Respond(topic string, handler func(data []byte) []byte) (channel.Subscription, error)
	Request(ctx context.Context, topic string, data []byte) ([]byte, error)
	IsConnected() bool
	Stats() channel.Stats
	Close() error
}

var _ Bus = (*channel.Factory)(nil)

// ConnectFunc opens the process-wide channel factory.
type ConnectFunc func(ctx context.Context, cfg channel.Config, logger *slog.Logger) (Bus, error)

// Env carries a program's I/O and its connection to the middleware.
type Env struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Connect ConnectFunc
}

// DefaultEnv wires the process streams and a real channel factory.
func DefaultEnv() Env {
	return Env{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Connect: ConnectChannel,
	}
}

// ConnectChannel creates a channel factory and waits for the broker,
// retrying per cfg until ctx is cancelled.
func ConnectChannel(ctx context.Context, cfg channel.Config, logger *slog.Logger) (Bus, error) {
	f, err := channel.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := f.InitWithRetry(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// flags are the options shared by every program. They must come before
// the positional arguments.
type flags struct {
	configPath string
	url        string
	domain     int
	logLevel   string
	statusAddr string
	wait       time.Duration
	language   string
}

func newFlagSet(name string, env Env, usage func(w io.Writer)) (*flag.FlagSet, *flags) {
	fl := &flags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() { usage(env.Stdout) }

	fs.StringVar(&fl.configPath, "config", "", "YAML config file")
	fs.StringVar(&fl.url, "url", "", "Broker URL (overrides config)")
	fs.IntVar(&fl.domain, "domain", 0, "Domain id (overrides config)")
	fs.StringVar(&fl.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&fl.statusAddr, "status-addr", "", "Serve health and metrics on this address, e.g. :9091")
	fs.DurationVar(&fl.wait, "wait", 0, "Playback wait after an accepted TTS request")
	return fs, fl
}

// parse parses args. done is true when the program should exit with code.
func parse(fs *flag.FlagSet, args []string) (code int, done bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK, true
		}
		return ExitUsage, true
	}
	return ExitOK, false
}

// loadConfig layers flags set on the command line over the loaded config.
func loadConfig(fs *flag.FlagSet, fl *flags, iface string) (config.Config, error) {
	cfg, err := config.Load(fl.configPath)
	if err != nil {
		return config.Config{}, err
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.Channel.URL = fl.url
		case "domain":
			cfg.Channel.DomainID = fl.domain
		case "log-level":
			cfg.LogLevel = fl.logLevel
		case "status-addr":
			cfg.StatusAddr = fl.statusAddr
		case "wait":
			cfg.PlaybackWait = fl.wait
		case "language":
			lang, err := audio.ParseLanguage(fl.language)
			if err != nil {
				flagErr = fmt.Errorf("%w: -language: %v", ErrUsage, err)
				return
			}
			cfg.Language = lang
		}
	})
	if flagErr != nil {
		return config.Config{}, flagErr
	}

	if iface != "" {
		cfg.Channel.NetworkInterface = iface
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session is the state every program sets up before its main work.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	bus      Bus
	registry *prometheus.Registry
	status   *status.Server
}

func openSession(ctx context.Context, name string, cfg config.Config, env Env) (*session, error) {
	var logger *slog.Logger
	if env.Stderr == os.Stderr {
		g1log.Init(cfg.LogLevel)
		logger = g1log.With("program", name)
	} else {
		logger = g1log.New(cfg.LogLevel, env.Stderr).With("program", name)
	}

	bus, err := env.Connect(ctx, cfg.Channel, logger)
	if err != nil {
		return nil, fmt.Errorf("channel factory init: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &session{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		registry: registry,
	}

	if cfg.StatusAddr != "" {
		s.status = status.NewServer(cfg.StatusAddr, registry)
		s.status.SetHealth(bus.IsConnected)
		s.status.AddStats("channel", func() any { return bus.Stats() })
		go func() {
			if err := s.status.Start(); err != nil {
				logger.Warn("status server stopped", "error", err)
			}
		}()
		logger.Info("status server listening", "addr", cfg.StatusAddr)
	}

	return s, nil
}

// newClient creates and initializes the voice service client.
func (s *session) newClient() *audio.Client {
	client := audio.NewClient(s.bus, s.logger)
	client.Init()
	client.SetTimeout(s.cfg.RPCTimeout)
	if s.status != nil {
		s.status.AddStats("audio", func() any { return client.Stats() })
	}
	return client
}

func (s *session) event(eventType, message string) {
	if s.status != nil {
		s.status.AddEvent(eventType, message)
	}
}

func (s *session) close() {
	if s.status != nil {
		if err := s.status.Shutdown(); err != nil {
			s.logger.Warn("status server shutdown", "error", err)
		}
	}
	if err := s.bus.Close(); err != nil {
		s.logger.Warn("channel factory close", "error", err)
	}
}

// volumeDemo reads the volume and then sets the configured level, printing
// each call's status.
func volumeDemo(ctx context.Context, client audio.VolumeController, volume int, w io.Writer) {
	v, err := client.GetVolume(ctx)
	fmt.Fprintf(w, "GetVolume API ret:%d  volume = %d\n", audio.Status(err), v)

	err = client.SetVolume(ctx, uint8(volume))
	fmt.Fprintf(w, "SetVolume to %d%% , API ret:%d\n", volume, audio.Status(err))
}

func fail(env Env, err error) int {
	fmt.Fprintf(env.Stderr, "Error: %v\n", err)
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}
	return ExitError
}

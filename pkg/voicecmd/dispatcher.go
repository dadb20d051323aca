package voicecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-g1audio/pkg/asr"
	"github.com/teslashibe/go-g1audio/pkg/audio"
)

// Config configures a Dispatcher. Zero values fall back to defaults.
type Config struct {
	// Language selects the preset table and the TTS voice.
	Language audio.Language

	// Waiter is called after an accepted TTS request.
	// Default: FixedWait(DefaultPlaybackWait)
	Waiter PlaybackWaiter

	// Stopper, if set, is asked to stop playback when ctx is cancelled
	// during the wait.
	Stopper audio.PlaybackStopper

	// Output receives the human-readable progress lines.
	// Default: os.Stdout
	Output io.Writer

	// Logger receives structured logs.
	Logger *slog.Logger

	// Metrics, if set, records command outcomes.
	Metrics *Metrics
}

// Result describes how one ASR result was handled.
type Result struct {
	Text   string
	Option Option
	Reply  string
	Status int32
	Err    error
	Waited bool

	// Stopped is set when an interrupted playback was stopped.
	Stopped bool
}

// Spoken reports whether a reply was accepted by the voice service.
func (r Result) Spoken() bool {
	return r.Option.Valid() && r.Err == nil
}

// Dispatcher answers voice commands with preset TTS replies.
// Handle is not safe for concurrent use; callers deliver results one at a
// time, as a subscription callback does.
type Dispatcher struct {
	speaker  audio.Speaker
	language audio.Language
	waiter   PlaybackWaiter
	stopper  audio.PlaybackStopper
	out      io.Writer
	logger   *slog.Logger
	metrics  *Metrics

	// Stats
	handled atomic.Int64
	matched atomic.Int64
	spoken  atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a dispatcher that speaks through speaker.
func NewDispatcher(speaker audio.Speaker, cfg Config) *Dispatcher {
	if cfg.Waiter == nil {
		cfg.Waiter = FixedWait(DefaultPlaybackWait)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		speaker:  speaker,
		language: cfg.Language,
		waiter:   cfg.Waiter,
		stopper:  cfg.Stopper,
		out:      cfg.Output,
		logger:   cfg.Logger.With("component", "voicecmd"),
		metrics:  cfg.Metrics,
	}
}

// Handle processes one recognized text.
func (d *Dispatcher) Handle(ctx context.Context, text string) Result {
	d.handled.Add(1)
	res := Result{Text: text, Option: Detect(text)}

	fmt.Fprintf(d.out, "[ASR Result] %s\n", text)

	if !res.Option.Valid() {
		fmt.Fprintf(d.out, "[Info] no keyword recognized (%s)\n", strings.Join(Keywords(), "/"))
		d.count(res.Option, statusIgnored)
		return res
	}

	d.matched.Add(1)
	res.Reply, _ = Preset(res.Option, d.language)

	fmt.Fprintf(d.out, "[Detected] keyword %s, option %d\n", res.Option.Keyword(), res.Option)
	fmt.Fprintf(d.out, "[TTS] speaking: %s\n", res.Reply)

	start := time.Now()
	res.Err = d.speaker.TtsMaker(ctx, res.Reply, d.language)
	res.Status = audio.Status(res.Err)
	if d.metrics != nil {
		d.metrics.TTSLatency.Observe(time.Since(start).Seconds())
	}

	fmt.Fprintf(d.out, "[TTS] TtsMaker API ret: %d\n", res.Status)

	if res.Err != nil {
		d.failed.Add(1)
		fmt.Fprintf(d.out, "[TTS] playback failed, code: %d\n", res.Status)
		d.logger.Warn("tts request failed",
			"option", res.Option.String(),
			"status", res.Status,
			"error", res.Err,
		)
		d.count(res.Option, statusFailed)
		return res
	}

	d.spoken.Add(1)
	d.count(res.Option, statusSpoken)

	if err := d.waiter.Wait(ctx, res.Reply, d.language); err != nil {
		d.logger.Debug("playback wait interrupted", "error", err)
		if d.stopper != nil && ctx.Err() != nil {
			stopErr := StopPlayback(ctx, d.stopper)
			res.Stopped = stopErr == nil
			fmt.Fprintf(d.out, "[TTS] playback interrupted, PlayStop API ret: %d\n", audio.Status(stopErr))
		}
		return res
	}
	res.Waited = true
	fmt.Fprintln(d.out, "[TTS] playback finished")

	return res
}

// Handler adapts the dispatcher to an ASR subscription callback. The
// dispatcher is captured by the closure, so no shared global is needed.
func (d *Dispatcher) Handler(ctx context.Context) asr.Handler {
	return func(msg asr.Message) {
		d.Handle(ctx, msg.Text)
	}
}

func (d *Dispatcher) count(option Option, status string) {
	if d.metrics == nil {
		return
	}
	d.metrics.CommandsTotal.WithLabelValues(option.String(), status).Inc()
}

// Stats returns dispatcher statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Handled:  d.handled.Load(),
		Matched:  d.matched.Load(),
		Spoken:   d.spoken.Load(),
		Failed:   d.failed.Load(),
		Language: d.language.String(),
	}
}

// Stats contains dispatcher statistics.
type Stats struct {
	Handled  int64  `json:"handled"`
	Matched  int64  `json:"matched"`
	Spoken   int64  `json:"spoken"`
	Failed   int64  `json:"failed"`
	Language string `json:"language"`
}

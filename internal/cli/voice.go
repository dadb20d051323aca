package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/teslashibe/go-g1audio/pkg/asr"
	"github.com/teslashibe/go-g1audio/pkg/voicecmd"
)

func voiceUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: voice-command [flags] <network_interface>")
	fmt.Fprintln(w, "Example: voice-command eth0")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Say one of %s and the robot answers with a preset reply.\n",
		strings.Join(voicecmd.Keywords(), ", "))
	fmt.Fprintln(w, "Flags: -config, -url, -domain, -log-level, -status-addr, -language, -wait")
}

// RunVoiceCommand answers drink requests heard over ASR until ctx is
// cancelled.
func RunVoiceCommand(ctx context.Context, args []string, env Env) int {
	fs, fl := newFlagSet("voice-command", env, voiceUsage)
	fs.StringVar(&fl.language, "language", "", "Reply language: 0/zh, 1/en, 2/ja")
	if code, done := parse(fs, args); done {
		return code
	}
	if fs.NArg() < 1 {
		voiceUsage(env.Stdout)
		return ExitOK
	}

	cfg, err := loadConfig(fs, fl, fs.Arg(0))
	if err != nil {
		return fail(env, err)
	}

	s, err := openSession(ctx, "voice-command", cfg, env)
	if err != nil {
		return fail(env, err)
	}
	defer s.close()

	client := s.newClient()
	volumeDemo(ctx, client, cfg.Volume, env.Stdout)

	dispatcher := voicecmd.NewDispatcher(client, voicecmd.Config{
		Language: cfg.Language,
		Waiter:   voicecmd.FixedWait(cfg.PlaybackWait),
		Stopper:  client,
		Output:   env.Stdout,
		Logger:   s.logger,
		Metrics:  voicecmd.NewMetrics(s.registry),
	})
	if s.status != nil {
		s.status.AddStats("voicecmd", func() any { return dispatcher.Stats() })
	}

	handle := dispatcher.Handler(ctx)
	sub, err := asr.Subscribe(s.bus, func(msg asr.Message) {
		s.event("asr", msg.Text)
		handle(msg)
	}, s.logger)
	if err != nil {
		return fail(env, err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintln(env.Stdout, "Voice command started. Listening for keywords...")
	fmt.Fprintln(env.Stdout, "Press Ctrl+C to exit.")

	<-ctx.Done()
	s.logger.Info("shutting down", "stats", dispatcher.Stats())
	return ExitOK
}

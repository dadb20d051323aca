package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/teslashibe/go-g1audio/pkg/asr"
)

func asrUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: asr-client [flags] <network_interface>")
	fmt.Fprintln(w, "Example: asr-client eth0")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prints every speech recognition result published by the robot.")
	fmt.Fprintln(w, "Flags: -config, -url, -domain, -log-level, -status-addr")
}

// RunASR runs the ASR listener until ctx is cancelled.
func RunASR(ctx context.Context, args []string, env Env) int {
	fs, fl := newFlagSet("asr-client", env, asrUsage)
	if code, done := parse(fs, args); done {
		return code
	}
	if fs.NArg() < 1 {
		asrUsage(env.Stdout)
		return ExitOK
	}

	cfg, err := loadConfig(fs, fl, fs.Arg(0))
	if err != nil {
		return fail(env, err)
	}

	s, err := openSession(ctx, "asr-client", cfg, env)
	if err != nil {
		return fail(env, err)
	}
	defer s.close()

	// No voice calls are made here, but the client is set up like in the
	// other programs so its stats are served.
	s.newClient()

	sub, err := asr.Subscribe(s.bus, func(msg asr.Message) {
		fmt.Fprintf(env.Stdout, "[ASR Result] %s\n", msg.Text)
		s.event("asr", msg.Text)
	}, s.logger)
	if err != nil {
		return fail(env, err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintln(env.Stdout, "ASR Client started. Waiting for speech recognition results...")
	fmt.Fprintln(env.Stdout, "Press Ctrl+C to exit.")

	<-ctx.Done()
	s.logger.Info("shutting down")
	return ExitOK
}

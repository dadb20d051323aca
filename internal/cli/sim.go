package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/teslashibe/go-g1audio/pkg/asr"
	"github.com/teslashibe/go-g1audio/pkg/audio"
)

func simUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: audio-sim [flags] [network_interface]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Answers voice service requests like the robot would and publishes")
	fmt.Fprintln(w, "every line read from stdin as a speech recognition result.")
	fmt.Fprintln(w, "Flags: -config, -url, -domain, -log-level, -status-addr, -volume, -fail-tts")
}

// RunSim runs the voice service simulator until ctx is cancelled.
func RunSim(ctx context.Context, args []string, env Env) int {
	fs, fl := newFlagSet("audio-sim", env, simUsage)
	volume := fs.Int("volume", 50, "Initial speaker volume (0-100)")
	failTTS := fs.Int("fail-tts", 0, "Answer every TTS request with this status code")
	if code, done := parse(fs, args); done {
		return code
	}
	if *volume < 0 || *volume > 100 {
		return fail(env, fmt.Errorf("%w: -volume must be within 0-100, got %d", ErrUsage, *volume))
	}

	cfg, err := loadConfig(fs, fl, fs.Arg(0))
	if err != nil {
		return fail(env, err)
	}

	s, err := openSession(ctx, "audio-sim", cfg, env)
	if err != nil {
		return fail(env, err)
	}
	defer s.close()

	svc := audio.NewService(uint8(*volume), s.logger)
	svc.FailTTS(int32(*failTTS))
	svc.OnSpeak = func(u audio.Utterance) {
		fmt.Fprintf(env.Stdout, "[Robot] speaking (%s): %s\n", u.Language, u.Text)
		s.event("tts", u.Text)
	}
	if s.status != nil {
		s.status.AddStats("voice", func() any {
			return map[string]any{
				"volume":     svc.Volume(),
				"utterances": len(svc.Utterances()),
			}
		})
	}

	sub, err := svc.Serve(s.bus)
	if err != nil {
		return fail(env, err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintln(env.Stdout, "Audio simulator started. Type a sentence to publish it as an ASR result.")

	lines := make(chan string)
	go readLines(ctx, env.Stdin, lines)

	var index int64
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down", "utterances", len(svc.Utterances()))
			return ExitOK

		case line, ok := <-lines:
			if !ok {
				// Keep answering voice requests after stdin closes.
				lines = nil
				continue
			}
			index++
			msg := asr.Message{
				Text:      line,
				Index:     index,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := asr.Publish(s.bus, msg); err != nil {
				s.logger.Warn("publish asr result failed", "error", err)
				continue
			}
			s.event("asr", line)
		}
	}
}

// readLines sends each non-empty line of r on out and closes out at EOF.
func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	if r == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}

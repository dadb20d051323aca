package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/teslashibe/go-g1audio/pkg/asr"
	"github.com/teslashibe/go-g1audio/pkg/audio"
	"github.com/teslashibe/go-g1audio/pkg/voicecmd"
)

func ttsUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tts-client [flags] <network_interface> [option|text] [language]")
	fmt.Fprintln(w, "Example: tts-client eth0 1 0")
	fmt.Fprintln(w)
	printOptions(w)
	fmt.Fprintln(w, "Languages: 0 chinese, 1 english, 2 japanese")
	fmt.Fprintln(w, "Any other text is spoken as given.")
	fmt.Fprintln(w, "Flags: -config, -url, -domain, -log-level, -status-addr, -wait")
}

func printOptions(w io.Writer) {
	fmt.Fprintln(w, "Options:")
	for o := voicecmd.OptionMilk; o <= voicecmd.OptionSoda; o++ {
		reply, _ := voicecmd.Preset(o, audio.LanguageChinese)
		fmt.Fprintf(w, "  %d - %s: %s\n", o, o.Keyword(), reply)
	}
}

// ttsRequest is what tts-client was asked to say.
type ttsRequest struct {
	iface    string
	arg      string
	option   voicecmd.Option
	language audio.Language
	langSet  bool
}

func parseTTSArgs(args []string) (ttsRequest, error) {
	req := ttsRequest{iface: args[0]}
	if len(args) > 1 {
		req.arg = args[1]
		req.option, _ = voicecmd.ParseOption(args[1])
	}
	if len(args) > 2 {
		lang, err := audio.ParseLanguage(args[2])
		if err != nil {
			return ttsRequest{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		req.language = lang
		req.langSet = true
	}
	if len(args) > 3 {
		return ttsRequest{}, fmt.Errorf("%w: unexpected argument %q", ErrUsage, args[3])
	}
	return req, nil
}

// text resolves the reply to speak: a preset when arg names an option,
// otherwise arg itself.
func (r ttsRequest) text() string {
	if r.option.Valid() {
		reply, _ := voicecmd.Preset(r.option, r.language)
		return reply
	}
	return r.arg
}

// RunTTS runs the TTS demo: volume, then one optional utterance.
func RunTTS(ctx context.Context, args []string, env Env) int {
	fs, fl := newFlagSet("tts-client", env, ttsUsage)
	if code, done := parse(fs, args); done {
		return code
	}
	if fs.NArg() < 1 {
		ttsUsage(env.Stdout)
		return ExitOK
	}

	req, err := parseTTSArgs(fs.Args())
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		ttsUsage(env.Stderr)
		return ExitUsage
	}

	cfg, err := loadConfig(fs, fl, req.iface)
	if err != nil {
		return fail(env, err)
	}
	if !req.langSet {
		req.language = cfg.Language
	}

	s, err := openSession(ctx, "tts-client", cfg, env)
	if err != nil {
		return fail(env, err)
	}
	defer s.close()

	client := s.newClient()

	sub, err := asr.Subscribe(s.bus, func(msg asr.Message) {
		s.logger.Debug("asr result ignored", "text", msg.Text)
	}, s.logger)
	if err != nil {
		return fail(env, err)
	}
	defer sub.Unsubscribe()

	volumeDemo(ctx, client, cfg.Volume, env.Stdout)

	if req.arg == "" {
		printOptions(env.Stdout)
		fmt.Fprintln(env.Stdout, "TTS Client finished.")
		return ExitOK
	}

	text := req.text()
	fmt.Fprintf(env.Stdout, "Speaking (%s): %s\n", req.language, text)

	err = client.TtsMaker(ctx, text, req.language)
	code := audio.Status(err)
	fmt.Fprintf(env.Stdout, "TtsMaker API ret:%d\n", code)
	s.event("tts", text)

	if err != nil {
		fmt.Fprintf(env.Stdout, "TTS failed, code: %d\n", code)
		s.logger.Warn("tts request failed", "status", code, "error", err)
	} else {
		fmt.Fprintf(env.Stdout, "Waiting %s for audio playback...\n", cfg.PlaybackWait)
		if err := voicecmd.FixedWait(cfg.PlaybackWait).Wait(ctx, text, req.language); err != nil {
			s.logger.Info("playback wait interrupted", "error", err)
			stopErr := voicecmd.StopPlayback(ctx, client)
			fmt.Fprintf(env.Stdout, "Playback interrupted, PlayStop API ret:%d\n", audio.Status(stopErr))
		}
	}

	fmt.Fprintln(env.Stdout, "TTS Client finished.")
	return ExitOK
}

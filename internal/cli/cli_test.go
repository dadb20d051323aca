package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-g1audio/pkg/asr"
	"github.com/teslashibe/go-g1audio/pkg/audio"
	"github.com/teslashibe/go-g1audio/pkg/channel"
	"github.com/teslashibe/go-g1audio/pkg/voicecmd"
)

// memBus is an in-memory Bus. Publish delivers synchronously.
type memBus struct {
	mu         sync.Mutex
	subs       map[string][]func([]byte)
	responders map[string]func([]byte) []byte
	published  []string
	closed     bool

	subscribed chan string
}

func newMemBus() *memBus {
	return &memBus{
		subs:       make(map[string][]func([]byte)),
		responders: make(map[string]func([]byte) []byte),
		subscribed: make(chan string, 16),
	}
}

type memSub struct{}

func (memSub) Unsubscribe() error { return nil }

func (b *memBus) Publish(topic string, data []byte) error {
	b.mu.Lock()
	handlers := append([]func([]byte){}, b.subs[topic]...)
	b.published = append(b.published, string(data))
	b.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (b *memBus) Subscribe(topic string, handler func([]byte)) (channel.Subscription, error) {
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], handler)
	b.mu.Unlock()
	b.subscribed <- topic
	return memSub{}, nil
}

func (b *memBus) Respond(topic string, handler func([]byte) []byte) (channel.Subscription, error) {
	b.mu.Lock()
	b.responders[topic] = handler
	b.mu.Unlock()
	b.subscribed <- topic
	return memSub{}, nil
}

func (b *memBus) Request(ctx context.Context, topic string, data []byte) ([]byte, error) {
	b.mu.Lock()
	h := b.responders[topic]
	b.mu.Unlock()
	if h == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h(data), nil
}

func (b *memBus) IsConnected() bool { return true }
func (b *memBus) Stats() channel.Stats { return channel.Stats{Connected: true} }
func (b *memBus) Published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

func (b *memBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// syncBuffer is a goroutine-safe output sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type harness struct {
	env      Env
	bus      *memBus
	stdout   *syncBuffer
	stderr   *syncBuffer
	connects int
	mu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	chdir(t, t.TempDir())

	h := &harness{
		bus:    newMemBus(),
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
	}
	h.env = Env{
		Stdout: h.stdout,
		Stderr: h.stderr,
		Connect: func(ctx context.Context, cfg channel.Config, logger *slog.Logger) (Bus, error) {
			h.mu.Lock()
			h.connects++
			h.mu.Unlock()
			return h.bus, nil
		},
	}
	return h
}

func (h *harness) connectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

// serve attaches a simulated voice service to the harness bus.
func (h *harness) serve(t *testing.T, volume uint8) *audio.Service {
	t.Helper()
	svc := audio.NewService(volume, nil)
	if _, err := svc.Serve(h.bus); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	<-h.bus.subscribed
	return svc
}

func waitTopic(t *testing.T, bus *memBus, topic string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-bus.subscribed:
			if got == topic {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for subscription to %s", topic)
		}
	}
}

func TestMissingInterface(t *testing.T) {
	tests := []struct {
		name string
		run  func(context.Context, []string, Env) int
	}{
		{"asr-client", RunASR},
		{"tts-client", RunTTS},
		{"voice-command", RunVoiceCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			code := tt.run(context.Background(), nil, h.env)
			if code != ExitOK {
				t.Errorf("expected exit 0, got %d", code)
			}
			if !strings.Contains(h.stdout.String(), "Usage: "+tt.name) {
				t.Errorf("expected usage on stdout, got %q", h.stdout.String())
			}
			if h.connectCount() != 0 {
				t.Error("should not connect without an interface")
			}
		})
	}
}

func TestHelpFlag(t *testing.T) {
	h := newHarness(t)
	if code := RunASR(context.Background(), []string{"-h"}, h.env); code != ExitOK {
		t.Errorf("expected exit 0, got %d", code)
	}
	if h.connectCount() != 0 {
		t.Error("should not connect for -h")
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		run  func(context.Context, []string, Env) int
		args []string
	}{
		{"tts bad language", RunTTS, []string{"eth0", "1", "9"}},
		{"tts extra argument", RunTTS, []string{"eth0", "1", "0", "x"}},
		{"voice bad language", RunVoiceCommand, []string{"-language", "fr", "eth0"}},
		{"unknown flag", RunASR, []string{"-nope", "eth0"}},
		{"sim bad volume", RunSim, []string{"-volume", "120"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if code := tt.run(context.Background(), tt.args, h.env); code != ExitUsage {
				t.Errorf("expected exit %d, got %d", ExitUsage, code)
			}
			if h.connectCount() != 0 {
				t.Error("should not connect on invalid arguments")
			}
		})
	}
}

func TestConnectFailure(t *testing.T) {
	h := newHarness(t)
	h.env.Connect = func(context.Context, channel.Config, *slog.Logger) (Bus, error) {
		return nil, channel.ErrNotConnected
	}

	if code := RunTTS(context.Background(), []string{"eth0"}, h.env); code != ExitError {
		t.Errorf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(h.stderr.String(), "channel factory init") {
		t.Errorf("expected init error on stderr, got %q", h.stderr.String())
	}
}

func TestParseTTSArgs(t *testing.T) {
	tests := []struct {
		args     []string
		text     string
		language audio.Language
		langSet  bool
		wantErr  bool
	}{
		{args: []string{"eth0"}},
		{args: []string{"eth0", "2"}, text: mustPreset(t, voicecmd.OptionJuice, audio.LanguageChinese)},
		{args: []string{"eth0", "3", "1"}, text: mustPreset(t, voicecmd.OptionSoda, audio.LanguageEnglish), language: audio.LanguageEnglish, langSet: true},
		{args: []string{"eth0", "hello there", "en"}, text: "hello there", language: audio.LanguageEnglish, langSet: true},
		{args: []string{"eth0", "4"}, text: "4"},
		{args: []string{"eth0", "1", "-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			req, err := parseTTSArgs(tt.args)
			if tt.wantErr {
				if !errors.Is(err, ErrUsage) {
					t.Errorf("expected ErrUsage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.text() != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, req.text())
			}
			if req.language != tt.language || req.langSet != tt.langSet {
				t.Errorf("unexpected language: %v (set=%v)", req.language, req.langSet)
			}
		})
	}
}

func mustPreset(t *testing.T, o voicecmd.Option, lang audio.Language) string {
	t.Helper()
	reply, ok := voicecmd.Preset(o, lang)
	if !ok {
		t.Fatalf("no preset for %v", o)
	}
	return reply
}

func TestRunTTS_Preset(t *testing.T) {
	h := newHarness(t)
	svc := h.serve(t, 30)

	code := RunTTS(context.Background(), []string{"-wait", "0s", "eth0", "1", "2"}, h.env)
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, h.stderr.String())
	}

	out := h.stdout.String()
	for _, want := range []string{
		"GetVolume API ret:0  volume = 30",
		"SetVolume to 100% , API ret:0",
		"TtsMaker API ret:0",
		"Waiting 0s for audio playback",
		"TTS Client finished.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}

	if svc.Volume() != 100 {
		t.Errorf("expected volume 100, got %d", svc.Volume())
	}
	utterances := svc.Utterances()
	if len(utterances) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(utterances))
	}
	want := mustPreset(t, voicecmd.OptionMilk, audio.LanguageJapanese)
	if utterances[0].Text != want || utterances[0].Language != audio.LanguageJapanese {
		t.Errorf("unexpected utterance: %+v", utterances[0])
	}
	if !h.bus.closed {
		t.Error("bus should be closed on exit")
	}
}

func TestRunTTS_FailureSkipsWait(t *testing.T) {
	h := newHarness(t)
	svc := h.serve(t, 50)
	svc.FailTTS(4201)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	code := RunTTS(ctx, []string{"-wait", "1h", "eth0", "hello"}, h.env)
	if code != ExitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if ctx.Err() != nil {
		t.Fatal("playback wait should have been skipped")
	}

	out := h.stdout.String()
	if !strings.Contains(out, "TtsMaker API ret:4201") || !strings.Contains(out, "TTS failed, code: 4201") {
		t.Errorf("failure not reported:\n%s", out)
	}
	if strings.Contains(out, "Waiting") {
		t.Errorf("should not wait after a failed request:\n%s", out)
	}
}

func TestRunTTS_InterruptStopsPlayback(t *testing.T) {
	h := newHarness(t)
	svc := h.serve(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.OnSpeak = func(audio.Utterance) { cancel() }

	done := make(chan int, 1)
	go func() { done <- RunTTS(ctx, []string{"-wait", "1h", "eth0", "2"}, h.env) }()

	select {
	case code := <-done:
		if code != ExitOK {
			t.Fatalf("expected exit 0, got %d (stderr: %s)", code, h.stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunTTS kept waiting after cancel")
	}

	if stops := svc.Stops(); len(stops) != 1 || stops[0] != audio.AppNameTTS {
		t.Errorf("expected one PlayStop for %q, got %v", audio.AppNameTTS, stops)
	}
	if out := h.stdout.String(); !strings.Contains(out, "Playback interrupted, PlayStop API ret:0") {
		t.Errorf("interruption not reported:\n%s", out)
	}
}

func TestRunTTS_NoOptionListsPresets(t *testing.T) {
	h := newHarness(t)
	svc := h.serve(t, 50)

	if code := RunTTS(context.Background(), []string{"eth0"}, h.env); code != ExitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "Options:") || !strings.Contains(out, "3 - 汽水") {
		t.Errorf("expected option list:\n%s", out)
	}
	if len(svc.Utterances()) != 0 {
		t.Error("nothing should be spoken without an option")
	}
}

func TestRunVoiceCommand(t *testing.T) {
	h := newHarness(t)
	svc := h.serve(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- RunVoiceCommand(ctx, []string{"-wait", "0s", "-language", "en", "eth0"}, h.env)
	}()

	waitTopic(t, h.bus, channel.TopicAudioMsg)

	if err := asr.Publish(h.bus, asr.Message{Text: "我想喝果汁"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := h.bus.Publish(channel.TopicAudioMsg, []byte("今天天气很好")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	cancel()
	select {
	case code := <-done:
		if code != ExitOK {
			t.Errorf("expected exit 0, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("voice-command did not stop")
	}

	out := h.stdout.String()
	for _, want := range []string{
		"[ASR Result] 我想喝果汁",
		"[Detected] keyword 果汁, option 2",
		"[TTS] TtsMaker API ret: 0",
		"[ASR Result] 今天天气很好",
		"[Info] no keyword recognized",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}

	utterances := svc.Utterances()
	if len(utterances) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(utterances))
	}
	if want := mustPreset(t, voicecmd.OptionJuice, audio.LanguageEnglish); utterances[0].Text != want {
		t.Errorf("expected %q, got %q", want, utterances[0].Text)
	}
}

func TestRunASR(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- RunASR(ctx, []string{"-log-level", "debug", "eth0"}, h.env) }()

	waitTopic(t, h.bus, channel.TopicAudioMsg)
	if err := h.bus.Publish(channel.TopicAudioMsg, []byte(`{"text":"你好","index":3}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	cancel()
	if code := <-done; code != ExitOK {
		t.Errorf("expected exit 0, got %d", code)
	}
	if !strings.Contains(h.stdout.String(), "[ASR Result] 你好\n") {
		t.Errorf("unexpected output:\n%s", h.stdout.String())
	}
	if !strings.Contains(h.stderr.String(), "audio client initialized") {
		t.Errorf("expected the voice client to be initialized:\n%s", h.stderr.String())
	}
}

func TestRunSim(t *testing.T) {
	h := newHarness(t)
	h.env.Stdin = strings.NewReader("我想喝牛奶\n\n你好\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- RunSim(ctx, []string{"-volume", "40"}, h.env) }()

	waitTopic(t, h.bus, channel.TopicVoiceRequest)

	deadline := time.Now().Add(5 * time.Second)
	for len(h.bus.Published()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	published := h.bus.Published()
	if len(published) != 2 {
		t.Fatalf("expected 2 published lines, got %d", len(published))
	}
	if msg := asr.Decode([]byte(published[0])); msg.Text != "我想喝牛奶" || msg.Index != 1 {
		t.Errorf("unexpected first message: %+v", msg)
	}

	client := audio.NewClient(h.bus, nil)
	client.Init()
	if v, err := client.GetVolume(ctx); err != nil || v != 40 {
		t.Errorf("expected volume 40, got %d (%v)", v, err)
	}
	if err := client.TtsMaker(ctx, "hello", audio.LanguageEnglish); err != nil {
		t.Errorf("TtsMaker failed: %v", err)
	}

	cancel()
	if code := <-done; code != ExitOK {
		t.Errorf("expected exit 0, got %d", code)
	}
	if !strings.Contains(h.stdout.String(), "[Robot] speaking (english): hello") {
		t.Errorf("unexpected output:\n%s", h.stdout.String())
	}
}

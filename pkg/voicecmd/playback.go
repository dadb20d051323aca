package voicecmd

import (
	"context"
	"time"

	"github.com/teslashibe/go-g1audio/pkg/audio"
)

// DefaultPlaybackWait is how long FixedWait assumes a reply takes to play.
const DefaultPlaybackWait = 5 * time.Second

// PlaybackWaiter blocks until an accepted TTS reply has finished playing.
type PlaybackWaiter interface {
	Wait(ctx context.Context, text string, lang audio.Language) error
}

// WaiterFunc adapts a function to PlaybackWaiter.
type WaiterFunc func(ctx context.Context, text string, lang audio.Language) error

// Wait calls f.
func (f WaiterFunc) Wait(ctx context.Context, text string, lang audio.Language) error {
	return f(ctx, text, lang)
}

// FixedWait sleeps for a fixed duration regardless of the text.
// The voice service sends no end-of-playback signal, so this is an
// estimate: long replies may still be playing when it returns.
type FixedWait time.Duration

// Wait sleeps for the configured duration or until ctx is done.
func (w FixedWait) Wait(ctx context.Context, _ string, _ audio.Language) error {
	if w <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(w))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoWait returns immediately.
var NoWait PlaybackWaiter = FixedWait(0)

// StopTimeout bounds the PlayStop request sent by StopPlayback.
const StopTimeout = 2 * time.Second

// StopPlayback asks the voice service to stop TTS playback. It runs after
// ctx is cancelled, so the request is sent on a context that keeps ctx's
// values but not its cancellation, limited to StopTimeout.
func StopPlayback(ctx context.Context, stopper audio.PlaybackStopper) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StopTimeout)
	defer cancel()
	return stopper.PlayStop(ctx, audio.AppNameTTS)
}

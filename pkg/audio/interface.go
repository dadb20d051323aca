// Package audio provides the client for the G1 robot's voice service.
//
// The voice service exposes text-to-speech and speaker volume control over
// request/reply RPC on the robot's middleware. The capabilities are split
// into small interfaces so consumers depend only on what they call.
package audio

import (
	"context"

	"github.com/teslashibe/go-g1audio/pkg/channel"
)

// Speaker renders text as speech on the robot.
type Speaker interface {
	TtsMaker(ctx context.Context, text string, lang Language) error
}

// VolumeController reads and sets the speaker volume (0-100).
type VolumeController interface {
	GetVolume(ctx context.Context) (uint8, error)
	SetVolume(ctx context.Context, volume uint8) error
}

// PlaybackStopper interrupts speech that is still playing.
type PlaybackStopper interface {
	PlayStop(ctx context.Context, appName string) error
}

// Controller is the composite interface for the voice service.
type Controller interface {
	Speaker
	VolumeController
}

// Transport sends one RPC request and returns the raw reply.
// *channel.Factory satisfies it.
type Transport interface {
	Request(ctx context.Context, topic string, data []byte) ([]byte, error)
}

// Responder serves RPC requests on a topic.
// *channel.Factory satisfies it.
type Responder interface {
	Respond(topic string, handler func(data []byte) []byte) (channel.Subscription, error)
}

var (
	_ Controller = (*Client)(nil)
	_ Controller = (*Mock)(nil)

	_ PlaybackStopper = (*Client)(nil)
	_ PlaybackStopper = (*Mock)(nil)

	_ Transport  = (*channel.Factory)(nil)
	_ Responder  = (*channel.Factory)(nil)
)

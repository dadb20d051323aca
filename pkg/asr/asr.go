// Package asr decodes speech recognition results published by the robot and
// delivers them to a handler.
package asr

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"github.com/teslashibe/go-g1audio/pkg/channel"
)

// Message is one recognized utterance.
type Message struct {
	// Text is the recognized speech.
	Text string `json:"text"`

	// Index is the robot's running result counter, when provided.
	Index int64 `json:"index,omitempty"`

	// Timestamp is the robot-side recognition time in milliseconds, when provided.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Angle is the sound source direction in degrees, when provided.
	Angle float64 `json:"angle,omitempty"`

	// SpeakerID identifies the recognized language or speaker, when provided.
	SpeakerID int `json:"speaker_id,omitempty"`

	// Emotion is the detected emotion label, when provided.
	Emotion string `json:"emotion,omitempty"`

	// Raw is the payload as received.
	Raw string `json:"-"`
}

// Decode parses a payload from the ASR topic. A JSON object with a "text"
// field is unpacked; anything else is taken verbatim as the text.
func Decode(data []byte) Message {
	raw := string(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err == nil && msg.Text != "" {
			msg.Raw = raw
			return msg
		}
	}

	return Message{Text: raw, Raw: raw}
}

// Encode produces the JSON form of a message, as the robot publishes it.
func Encode(msg Message) ([]byte, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return nil, fmt.Errorf("asr: empty text")
	}
	return json.Marshal(msg)
}

// Subscriber registers callbacks on a topic.
// *channel.Factory satisfies it.
type Subscriber interface {
	Subscribe(topic string, handler func(data []byte)) (channel.Subscription, error)
}

// Publisher publishes raw payloads on a topic.
// *channel.Factory satisfies it.
type Publisher interface {
	Publish(topic string, data []byte) error
}

// Handler receives decoded ASR results. Calls are sequential.
type Handler func(msg Message)

// Subscribe delivers every message on the ASR topic to handler.
func Subscribe(s Subscriber, handler Handler, logger *slog.Logger) (channel.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sub, err := s.Subscribe(channel.TopicAudioMsg, func(data []byte) {
		msg := Decode(data)
		logger.Debug("asr result", "text", msg.Text, "index", msg.Index)
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", channel.TopicAudioMsg, err)
	}

	logger.Info("subscribed to ASR topic", "topic", channel.TopicAudioMsg)
	return sub, nil
}

// Publish sends msg on the ASR topic.
func Publish(p Publisher, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return p.Publish(channel.TopicAudioMsg, data)
}

var (
	_ Subscriber = (*channel.Factory)(nil)
	_ Publisher  = (*channel.Factory)(nil)
)

package channel

import (
	"fmt"
	"strings"
)

// Topic names used by the G1 audio service.
// Names use the robot's slash form; Topics maps them onto broker subjects.

// TopicAudioMsg carries speech recognition results.
// Publishes: UTF-8 text or a JSON ASR result
const TopicAudioMsg = "rt/audio_msg"

// TopicVoiceRequest is the voice service RPC endpoint.
// Requests: JSON RPC envelope, replies: JSON RPC envelope
const TopicVoiceRequest = "rt/api/voice/request"

// Topics builds fully-qualified subjects for one domain.
type Topics struct {
	prefix string
	domain int
}

// NewTopics creates a Topics helper with the given prefix and domain.
func NewTopics(prefix string, domain int) *Topics {
	return &Topics{prefix: prefix, domain: domain}
}

// Subject maps a slash-separated topic name onto a dotted subject,
// e.g. "rt/audio_msg" in domain 0 becomes "g1.0.rt.audio_msg".
func (t *Topics) Subject(topic string) string {
	topic = strings.Trim(topic, "/")
	topic = strings.ReplaceAll(topic, "/", ".")
	return fmt.Sprintf("%s.%d.%s", t.prefix, t.domain, topic)
}

// AudioMsg returns the full ASR result subject.
func (t *Topics) AudioMsg() string {
	return t.Subject(TopicAudioMsg)
}

// VoiceRequest returns the full voice RPC subject.
func (t *Topics) VoiceRequest() string {
	return t.Subject(TopicVoiceRequest)
}

package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/teslashibe/go-g1audio/pkg/channel"
)

// Utterance is one accepted TTS request.
type Utterance struct {
	Index    int64     `json:"index"`
	Text     string    `json:"text"`
	Language Language  `json:"language"`
	Time     time.Time `json:"time"`
}

// Service is an in-process stand-in for the robot's voice service.
// It keeps a volume level and acknowledges TTS requests without producing
// audio, so the example programs can run without a robot.
type Service struct {
	logger *slog.Logger

	// OnSpeak, if set, is called for every accepted TTS request.
	OnSpeak func(u Utterance)

	mu         sync.Mutex
	volume     uint8
	ttsStatus  int32
	utterances []Utterance
	stops      []string
}

// NewService creates a simulated voice service with the given volume.
func NewService(volume uint8, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if volume > 100 {
		volume = 100
	}
	return &Service{
		logger: logger.With("component", "voice-sim"),
		volume: volume,
	}
}

// Serve starts answering voice requests through r.
func (s *Service) Serve(r Responder) (channel.Subscription, error) {
	sub, err := r.Respond(channel.TopicVoiceRequest, s.Handle)
	if err != nil {
		return nil, fmt.Errorf("serve voice service: %w", err)
	}
	s.logger.Info("voice service ready", "topic", channel.TopicVoiceRequest)
	return sub, nil
}

// FailTTS makes every following TTS request return code. 0 restores success.
func (s *Service) FailTTS(code int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttsStatus = code
}

// Volume returns the current volume.
func (s *Service) Volume() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Utterances returns the accepted TTS requests in arrival order.
func (s *Service) Utterances() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Utterance, len(s.utterances))
	copy(out, s.utterances)
	return out
}

// Stops returns the app names of PlayStop requests in arrival order.
func (s *Service) Stops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.stops))
	copy(out, s.stops)
	return out
}

// Handle decodes one request envelope and returns the encoded response.
func (s *Service) Handle(data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn("malformed request", "error", err)
		return s.reply(Identity{}, StatusBadParameter, "")
	}

	id := req.Header.Identity
	code, result := s.dispatch(id.APIID, req.Parameter)

	s.logger.Debug("voice request",
		"api", APIName(id.APIID),
		"request_id", id.ID,
		"code", code,
	)

	return s.reply(id, code, result)
}

func (s *Service) dispatch(apiID int32, parameter string) (int32, string) {
	switch apiID {
	case APIIDGetVolume:
		raw, _ := json.Marshal(volumeParameter{Volume: int(s.Volume())})
		return StatusOK, string(raw)

	case APIIDSetVolume:
		var p volumeParameter
		if err := json.Unmarshal([]byte(parameter), &p); err != nil || p.Volume < 0 || p.Volume > 100 {
			return StatusBadParameter, ""
		}
		s.mu.Lock()
		s.volume = uint8(p.Volume)
		s.mu.Unlock()
		s.logger.Info("volume set", "volume", p.Volume)
		return StatusOK, ""

	case APIIDTts:
		var p ttsParameter
		if err := json.Unmarshal([]byte(parameter), &p); err != nil || p.Text == "" || !p.SpeakerID.Valid() {
			return StatusBadParameter, ""
		}
		return s.speak(p), ""

	case APIIDPlayStop:
		var p playStopParameter
		if err := json.Unmarshal([]byte(parameter), &p); err != nil || p.AppName == "" {
			return StatusBadParameter, ""
		}
		s.mu.Lock()
		s.stops = append(s.stops, p.AppName)
		s.mu.Unlock()
		s.logger.Info("playback stopped", "app", p.AppName)
		return StatusOK, ""

	default:
		return StatusAPINotFound, ""
	}
}

func (s *Service) speak(p ttsParameter) int32 {
	s.mu.Lock()
	if s.ttsStatus != StatusOK {
		code := s.ttsStatus
		s.mu.Unlock()
		return code
	}
	u := Utterance{
		Index:    p.Index,
		Text:     p.Text,
		Language: p.SpeakerID,
		Time:     time.Now(),
	}
	s.utterances = append(s.utterances, u)
	onSpeak := s.OnSpeak
	s.mu.Unlock()

	s.logger.Info("speaking", "text", u.Text, "language", u.Language.String())
	if onSpeak != nil {
		onSpeak(u)
	}
	return StatusOK
}

func (s *Service) reply(id Identity, code int32, data string) []byte {
	raw, err := json.Marshal(Response{
		Header: ResponseHeader{
			Identity: id,
			Status:   ResponseStatus{Code: code},
		},
		Data: data,
	})
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		return nil
	}
	return raw
}

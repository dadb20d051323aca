package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/teslashibe/go-g1audio/pkg/channel"
)

// DefaultTimeout bounds each RPC call unless SetTimeout is used.
const DefaultTimeout = 10 * time.Second

// Client is a session with the robot's voice service.
// It is safe for concurrent use once Init has returned.
type Client struct {
	transport Transport
	logger    *slog.Logger
	topic     string

	timeout     atomic.Int64
	initialized atomic.Bool
	ttsIndex    atomic.Int64

	// Stats
	calls    atomic.Int64
	failures atomic.Int64
}

// NewClient creates a voice service client over transport.
// Call Init() before making calls.
func NewClient(transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		transport: transport,
		logger:    logger.With("component", "audio", "service", ServiceName),
		topic:     channel.TopicVoiceRequest,
	}
	c.timeout.Store(int64(DefaultTimeout))
	return c
}

// Init prepares the client for calls.
func (c *Client) Init() {
	if c.initialized.Swap(true) {
		return
	}
	c.logger.Debug("audio client initialized",
		"topic", c.topic,
		"timeout", c.Timeout(),
	)
}

// SetTimeout sets the per-call reply timeout. Non-positive values restore
// DefaultTimeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.timeout.Store(int64(d))
}

// Timeout returns the per-call reply timeout.
func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// GetVolume returns the speaker volume (0-100).
func (c *Client) GetVolume(ctx context.Context) (uint8, error) {
	data, err := c.call(ctx, APIIDGetVolume, nil)
	if err != nil {
		return 0, err
	}

	var result volumeParameter
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return 0, c.fail(APIIDGetVolume, StatusBadResponse, fmt.Errorf("decode volume: %w", err))
	}
	if result.Volume < 0 || result.Volume > 100 {
		return 0, c.fail(APIIDGetVolume, StatusBadResponse, fmt.Errorf("volume %d out of range", result.Volume))
	}

	return uint8(result.Volume), nil
}

// SetVolume sets the speaker volume. Values above 100 are clamped.
func (c *Client) SetVolume(ctx context.Context, volume uint8) error {
	if volume > 100 {
		volume = 100
	}
	_, err := c.call(ctx, APIIDSetVolume, volumeParameter{Volume: int(volume)})
	return err
}

// TtsMaker asks the robot to speak text in the given language.
// It returns once the request is accepted; playback continues on the robot.
func (c *Client) TtsMaker(ctx context.Context, text string, lang Language) error {
	param := ttsParameter{
		Index:     c.ttsIndex.Add(1),
		Text:      text,
		SpeakerID: lang,
	}
	_, err := c.call(ctx, APIIDTts, param)
	return err
}

// PlayStop stops playback started by the named application.
func (c *Client) PlayStop(ctx context.Context, appName string) error {
	_, err := c.call(ctx, APIIDPlayStop, playStopParameter{AppName: appName})
	return err
}

// call sends one request and returns the reply's data field.
func (c *Client) call(ctx context.Context, apiID int32, param any) (string, error) {
	if !c.initialized.Load() {
		return "", c.fail(apiID, StatusNotInitialized, ErrNotInitialized)
	}

	c.calls.Add(1)

	var parameter string
	if param != nil {
		raw, err := json.Marshal(param)
		if err != nil {
			return "", c.fail(apiID, StatusSendFailed, fmt.Errorf("encode parameter: %w", err))
		}
		parameter = string(raw)
	}

	req := Request{
		Header: RequestHeader{
			Identity: Identity{ID: uuid.NewString(), APIID: apiID},
		},
		Parameter: parameter,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", c.fail(apiID, StatusSendFailed, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	start := time.Now()
	raw, err := c.transport.Request(ctx, c.topic, payload)
	if err != nil {
		code := StatusSendFailed
		if errors.Is(err, context.DeadlineExceeded) {
			code = StatusTimeout
		}
		return "", c.fail(apiID, code, err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", c.fail(apiID, StatusBadResponse, fmt.Errorf("decode response: %w", err))
	}
	if resp.Header.Status.Code != StatusOK {
		return "", c.fail(apiID, resp.Header.Status.Code, nil)
	}

	c.logger.Debug("voice call ok",
		"api", APIName(apiID),
		"request_id", req.Header.Identity.ID,
		"latency", time.Since(start),
	)

	return resp.Data, nil
}

func (c *Client) fail(apiID int32, code int32, err error) error {
	c.failures.Add(1)
	return &StatusError{API: APIName(apiID), Code: code, Err: err}
}

// Stats returns client statistics.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Calls:    c.calls.Load(),
		Failures: c.failures.Load(),
		Timeout:  c.Timeout().String(),
	}
}

// ClientStats contains client statistics.
type ClientStats struct {
	Calls    int64  `json:"calls"`
	Failures int64  `json:"failures"`
	Timeout  string `json:"timeout"`
}

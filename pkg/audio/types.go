package audio

import (
	"fmt"
	"strconv"
	"strings"
)

// Service name and API identifiers of the voice service.
const (
	ServiceName = "voice"

	APIIDTts       int32 = 1001
	APIIDPlayStop  int32 = 1004
	APIIDGetVolume int32 = 1005
	APIIDSetVolume int32 = 1006
)

// AppNameTTS is the application name PlayStop uses for TtsMaker playback.
const AppNameTTS = "tts"

// apiNames maps API ids to names used in logs and errors.
var apiNames = map[int32]string{
	APIIDTts:       "TtsMaker",
	APIIDPlayStop:  "PlayStop",
	APIIDGetVolume: "GetVolume",
	APIIDSetVolume: "SetVolume",
}

// APIName returns the method name for an API id.
func APIName(id int32) string {
	if name, ok := apiNames[id]; ok {
		return name
	}
	return fmt.Sprintf("api_%d", id)
}

// Language selects the TTS voice. It is sent as the speaker id.
type Language int32

const (
	LanguageChinese  Language = 0
	LanguageEnglish  Language = 1
	LanguageJapanese Language = 2
)

// String returns the language name.
func (l Language) String() string {
	switch l {
	case LanguageChinese:
		return "chinese"
	case LanguageEnglish:
		return "english"
	case LanguageJapanese:
		return "japanese"
	default:
		return fmt.Sprintf("language(%d)", int32(l))
	}
}

// Valid reports whether l is a known language code.
func (l Language) Valid() bool {
	return l >= LanguageChinese && l <= LanguageJapanese
}

// ParseLanguage accepts a numeric code ("0", "1", "2") or a name
// ("zh", "en", "ja", "chinese", ...).
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "zh", "cn", "chinese":
		return LanguageChinese, nil
	case "en", "english":
		return LanguageEnglish, nil
	case "ja", "jp", "japanese":
		return LanguageJapanese, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid language %q: want 0, 1 or 2", s)
	}
	lang := Language(n)
	if !lang.Valid() {
		return 0, fmt.Errorf("invalid language %d: want 0, 1 or 2", n)
	}
	return lang, nil
}

// Identity names one request and the API it targets.
type Identity struct {
	ID    string `json:"id"`
	APIID int32  `json:"api_id"`
}

// Policy carries per-request delivery hints.
type Policy struct {
	Priority int  `json:"priority"`
	NoReply  bool `json:"noreply"`
}

// RequestHeader is the header of an RPC request.
type RequestHeader struct {
	Identity Identity `json:"identity"`
	Policy   Policy   `json:"policy"`
}

// Request is the RPC request envelope. Parameter holds the API's JSON
// arguments as a string.
type Request struct {
	Header    RequestHeader `json:"header"`
	Parameter string        `json:"parameter"`
}

// ResponseStatus holds the remote status code, 0 meaning success.
type ResponseStatus struct {
	Code int32 `json:"code"`
}

// ResponseHeader is the header of an RPC response.
type ResponseHeader struct {
	Identity Identity       `json:"identity"`
	Status   ResponseStatus `json:"status"`
}

// Response is the RPC response envelope. Data holds the API's JSON result
// as a string.
type Response struct {
	Header ResponseHeader `json:"header"`
	Data   string         `json:"data"`
}

type ttsParameter struct {
	Index     int64    `json:"index"`
	Text      string   `json:"text"`
	SpeakerID Language `json:"speaker_id"`
}

type volumeParameter struct {
	Volume int `json:"volume"`
}

type playStopParameter struct {
	AppName string `json:"app_name"`
}

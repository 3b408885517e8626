package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"nhooyr.io/websocket"
)

const (
	defaultLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultVoiceName    = "Puck"

	// Model audio chunks arrive well above the nhooyr default read limit.
	liveReadLimit = 16 << 20
)

// LiveConfig configures a bidirectional voice session.
type LiveConfig struct {
	APIKey string
	Model  string
	// Endpoint overrides the production websocket URL (tests, proxies).
	Endpoint          string
	SystemInstruction string
	VoiceName         string
	// HTTPClient is used for the websocket handshake when set.
	HTTPClient *http.Client
}

// LiveSession is an open BidiGenerateContent stream. Send methods are safe
// for concurrent use; Recv must be called from a single goroutine.
type LiveSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

type setupMessage struct {
	Setup liveSetup `json:"setup"`
}

type liveSetup struct {
	Model                    string            `json:"model"`
	GenerationConfig         *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *Content          `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []Content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

// ServerMessage is one decoded frame from the model.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete"`
	ServerContent *ServerContent `json:"serverContent"`
	GoAway        *GoAway        `json:"goAway"`
}

type SetupComplete struct{}

// ServerContent carries model output. ModelTurn parts hold synthesized audio
// (and occasionally text); the transcription fields mirror what was said.
type ServerContent struct {
	ModelTurn           *Content       `json:"modelTurn"`
	TurnComplete        bool           `json:"turnComplete"`
	Interrupted         bool           `json:"interrupted"`
	GenerationComplete  bool           `json:"generationComplete"`
	InputTranscription  *Transcription `json:"inputTranscription"`
	OutputTranscription *Transcription `json:"outputTranscription"`
}

// Transcription is an incremental transcript fragment.
type Transcription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
}

// GoAway warns that the server will close the stream shortly.
type GoAway struct {
	TimeLeft string `json:"timeLeft"`
}

// DialLive opens a live session, sends the setup message and waits for the
// server's setupComplete ack. The returned session streams audio both ways.
func DialLive(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini live: api key required")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultLiveEndpoint
	}
	dialURL := endpoint + "?key=" + url.QueryEscape(cfg.APIKey)

	conn, _, err := websocket.Dial(ctx, dialURL, &websocket.DialOptions{
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini live: dial: %w", err)
	}
	conn.SetReadLimit(liveReadLimit)

	s := &LiveSession{conn: conn}

	voice := cfg.VoiceName
	if voice == "" {
		voice = defaultVoiceName
	}
	setup := setupMessage{
		Setup: liveSetup{
			Model: qualifiedModel(cfg.Model),
			GenerationConfig: &GenerationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &SpeechConfig{
					VoiceConfig: &VoiceConfig{
						PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: voice},
					},
				},
			},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if instruction := strings.TrimSpace(cfg.SystemInstruction); instruction != "" {
		setup.Setup.SystemInstruction = &Content{Parts: []Part{{Text: instruction}}}
	}
	if err := s.writeJSON(ctx, setup); err != nil {
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini live: setup: %w", err)
	}

	first, err := s.Recv(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "setup failed")
		return nil, fmt.Errorf("gemini live: setup ack: %w", err)
	}
	if first.SetupComplete == nil {
		conn.Close(websocket.StatusProtocolError, "expected setupComplete")
		return nil, errors.New("gemini live: unexpected first message")
	}

	return s, nil
}

// SendAudio streams a base64-encoded audio chunk from the candidate's mic.
func (s *LiveSession) SendAudio(ctx context.Context, mimeType, data string) error {
	return s.sendMedia(ctx, mimeType, data)
}

// SendVideo streams a base64-encoded camera frame.
func (s *LiveSession) SendVideo(ctx context.Context, mimeType, data string) error {
	return s.sendMedia(ctx, mimeType, data)
}

func (s *LiveSession) sendMedia(ctx context.Context, mimeType, data string) error {
	if data == "" {
		return nil
	}
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []Blob{{MimeType: mimeType, Data: data}},
		},
	}
	if err := s.writeJSON(ctx, msg); err != nil {
		return fmt.Errorf("gemini live: send media: %w", err)
	}
	return nil
}

// SendText submits a typed candidate message as a completed turn.
func (s *LiveSession) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	msg := clientContentMessage{
		ClientContent: clientContent{
			Turns: []Content{
				{Role: "user", Parts: []Part{{Text: text}}},
			},
			TurnComplete: true,
		},
	}
	if err := s.writeJSON(ctx, msg); err != nil {
		return fmt.Errorf("gemini live: send text: %w", err)
	}
	return nil
}

// Recv blocks until the next server message arrives.
func (s *LiveSession) Recv(ctx context.Context) (*ServerMessage, error) {
	_, raw, err := s.conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini live: read: %w", err)
	}
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("gemini live: decode: %w", err)
	}
	return &msg, nil
}

// Close ends the stream with a normal closure.
func (s *LiveSession) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "session complete")
}

func (s *LiveSession) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

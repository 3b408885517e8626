// Package gemini wraps the Google Generative Language API: the REST
// generateContent endpoint for feedback reports and the BidiGenerateContent
// websocket for live voice sessions.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "models/gemini-2.0-flash"
	defaultHTTPTimeout  = 60 * time.Second
	feedbackTemperature = 0.4
)

// Client wraps the Gemini generateContent REST API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the Gemini client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default generation model.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// NewClient constructs a Gemini REST client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Content is a single conversational turn made of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a turn: text or an inline media blob.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob carries base64-encoded media with its mime type.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig tunes a generation request. The REST endpoint uses the
// temperature and response mime type; the live setup uses modalities and
// speech config.
type GenerationConfig struct {
	Temperature        *float64      `json:"temperature,omitempty"`
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesized interviewer voice.
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// FeedbackRequest carries the prompts for a feedback generation call.
type FeedbackRequest struct {
	SystemPrompt string
	UserPrompt   string
}

type generateRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// GenerateFeedback asks the model for a JSON feedback report and returns the
// raw JSON payload after stripping markdown fences the model sometimes adds.
func (c *Client) GenerateFeedback(ctx context.Context, req FeedbackRequest) (json.RawMessage, error) {
	userPrompt := strings.TrimSpace(req.UserPrompt)
	if userPrompt == "" {
		return nil, errors.New("gemini feedback: user prompt required")
	}
	if c.apiKey == "" {
		return nil, errors.New("gemini feedback: api key required")
	}

	temperature := feedbackTemperature
	payload := generateRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: userPrompt}}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:      &temperature,
			ResponseMIMEType: "application/json",
		},
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		payload.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini feedback: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/%s:generateContent?key=%s",
		c.baseURL, qualifiedModel(c.model), url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("gemini feedback: request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini feedback: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini feedback: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("gemini feedback: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var generated generateResponse
	if err := json.Unmarshal(body, &generated); err != nil {
		return nil, fmt.Errorf("gemini feedback: decode response: %w", err)
	}
	if generated.Error != nil {
		return nil, fmt.Errorf("gemini feedback: api error %s: %s", generated.Error.Status, strings.TrimSpace(generated.Error.Message))
	}
	if generated.PromptFeedback != nil && generated.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini feedback: prompt blocked: %s", generated.PromptFeedback.BlockReason)
	}
	if len(generated.Candidates) == 0 {
		return nil, errors.New("gemini feedback: empty candidates")
	}

	text := candidateText(generated.Candidates[0].Content)
	if text == "" {
		return nil, fmt.Errorf("gemini feedback: empty content (finish_reason=%q)", generated.Candidates[0].FinishReason)
	}

	cleaned := extractJSONPayload(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("gemini feedback: invalid json payload: %s", snippet(cleaned))
	}
	return json.RawMessage(cleaned), nil
}

// qualifiedModel ensures the "models/" resource prefix the API expects.
func qualifiedModel(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	return "models/" + model
}

func candidateText(content Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// extractJSONPayload strips markdown code fences and surrounding prose,
// leaving the first JSON object or array in the text.
func extractJSONPayload(text string) string {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(text string) string {
	clean := strings.Join(strings.Fields(text), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}

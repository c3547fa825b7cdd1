package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const DefaultPreference = "balanced"

const (
	diagnosisPrompt = `You are a highly experienced cannabis plant doctor.
Analyse the photo and answer with a single JSON object only, using these keys:
"health_status" (one of "healthy", "stressed", "sick"), "confidence" (0 to 1),
"issues" (array of objects with "name", "category", "severity" and "evidence"),
"recommendations" (array of short actionable strings) and "summary" (one or two sentences).
If the photo does not show a cannabis plant, set "health_status" to "unknown" and explain in "summary".`

	ripenessPrompt = `You only assess the ripeness of the trichomes in the photo.
Answer with a single JSON object only, using these keys:
"clear_percent", "cloudy_percent", "amber_percent" (integers summing to 100),
"ripeness_stage" (one of "early", "approaching", "peak", "late"), "confidence" (0 to 1),
"harvest_recommendation" (short text taking the user's desired effect into account)
and "summary" (one or two sentences).
If trichomes are not visible, set "ripeness_stage" to "unknown" and explain in "summary".`

	diagnosisText = "Analyse this image."
	ripenessText  = "Desired effect: %s. Assess the ripeness of the trichomes."
)

var (
	ErrNotConfigured    = errors.New("vision provider is not configured")
	ErrUnsupportedImage = errors.New("only JPEG or PNG images are allowed")
	ErrRequestFailed    = errors.New("vision provider request failed")
	ErrInvalidJSON      = errors.New("vision provider returned invalid JSON")
)

var supportedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func IsSupportedType(contentType string) bool {
	return supportedTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

type Image struct {
	ContentType string
	Data        []byte
}

// DataURL inlines the image the way the chat API expects it.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", strings.ToLower(i.ContentType), base64.StdEncoding.EncodeToString(i.Data))
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func New(cfg Config) (*Client, error) {
	const op = "vision.New"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Client) Diagnose(ctx context.Context, img Image) (json.RawMessage, error) {
	const op = "vision.Diagnose"

	out, err := c.analyse(ctx, diagnosisPrompt, diagnosisText, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) Ripeness(ctx context.Context, img Image, preference string) (json.RawMessage, error) {
	const op = "vision.Ripeness"

	preference = strings.TrimSpace(preference)
	if preference == "" {
		preference = DefaultPreference
	}

	out, err := c.analyse(ctx, ripenessPrompt, fmt.Sprintf(ripenessText, preference), img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (c *Client) analyse(ctx context.Context, system, text string, img Image) (json.RawMessage, error) {
	if !IsSupportedType(img.ContentType) {
		return nil, ErrUnsupportedImage
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: text},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: img.DataURL()}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrInvalidJSON
	}

	raw := bytes.TrimSpace([]byte(resp.Choices[0].Message.Content))
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}

	return json.RawMessage(raw), nil
}

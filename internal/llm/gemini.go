package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rosaine-academy/backend/internal/config"
	"github.com/rosaine-academy/backend/internal/metrics"
)

// Generator produces a text completion for a prompt. Handlers depend on this
// interface so tests can stub the model.
type Generator interface {
	GenerateText(ctx context.Context, service, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, service, prompt, mimeType string, image []byte) (string, error)
}

// Client wraps the Gemini SDK with a configured model, request timeout and
// per-service metrics.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateText sends the prompt to the configured model and returns the
// concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, service, prompt string) (string, error) {
	return c.generate(ctx, service, 0, genai.Text(prompt))
}

// GenerateTextWithTemperature is GenerateText with an explicit sampling
// temperature. Formatting passes use a low temperature to keep the model
// from rewriting content.
func (c *Client) GenerateTextWithTemperature(ctx context.Context, service, prompt string, temperature float32) (string, error) {
	return c.generate(ctx, service, temperature, genai.Text(prompt))
}

// GenerateWithImage sends the prompt together with inline image bytes.
func (c *Client) GenerateWithImage(ctx context.Context, service, prompt, mimeType string, image []byte) (string, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	return c.generate(ctx, service, 0, genai.ImageData(format, image), genai.Text(prompt))
}

func (c *Client) generate(ctx context.Context, service string, temperature float32, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	if temperature > 0 {
		model.SetTemperature(temperature)
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	metrics.LLMRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(service, "error").Inc()
		return "", fmt.Errorf("generating content: %w", err)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(service, "empty").Inc()
		return "", err
	}
	metrics.LLMRequestsTotal.WithLabelValues(service, "success").Inc()
	return text, nil
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model returned no text parts")
	}
	return sb.String(), nil
}

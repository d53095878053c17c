// Package openrouter implements model calls, key checks and the model
// catalog against the OpenRouter API using its OpenAI-compatible surface.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/fwojciec/promptscore"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface verification.
var (
	_ promptscore.ChatClient   = (*Client)(nil)
	_ promptscore.KeyVerifier  = (*Client)(nil)
	_ promptscore.ModelCatalog = (*Client)(nil)
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1/"

// KeyPrefix is the prefix of every OpenRouter API key.
const KeyPrefix = "sk-or-"

// Config holds transport settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	AppName    string // sent as X-Title for attribution on openrouter.ai
}

// Client implements promptscore.ChatClient, promptscore.KeyVerifier and
// promptscore.ModelCatalog. The API key travels with each request.
type Client struct {
	client openai.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithAPIKey(""),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.AppName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.AppName))
	}
	return &Client{client: openai.NewClient(opts...)}
}

// Complete sends req as a chat completion.
func (c *Client) Complete(ctx context.Context, req promptscore.CompletionRequest) (*promptscore.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.ResponseSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "verdict",
					Schema: req.ResponseSchema,
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		return nil, classify("openrouter.complete", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter.complete: %w", promptscore.ErrEmptyResponse)
	}
	return &promptscore.Completion{
		Content: resp.Choices[0].Message.Content,
		Usage:   promptscore.NewTokenUsage(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)),
	}, nil
}

func messages(req promptscore.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	return append(msgs, openai.UserMessage(req.User))
}

// keyResponse is the body of GET /key.
type keyResponse struct {
	Data struct {
		Label string   `json:"label"`
		Limit *float64 `json:"limit"`
		Usage float64  `json:"usage"`
	} `json:"data"`
}

// VerifyKey checks apiKey against the key endpoint.
func (c *Client) VerifyKey(ctx context.Context, apiKey string) error {
	var res keyResponse
	if err := c.client.Get(ctx, "key", nil, &res, option.WithAPIKey(apiKey)); err != nil {
		return classify("openrouter.verify_key", err)
	}
	return nil
}

// modelsResponse is the body of GET /models.
type modelsResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// Models lists the OpenRouter catalog. The endpoint needs no key.
func (c *Client) Models(ctx context.Context) ([]promptscore.Model, error) {
	var res modelsResponse
	if err := c.client.Get(ctx, "models", nil, &res); err != nil {
		return nil, classify("openrouter.models", err)
	}
	models := make([]promptscore.Model, 0, len(res.Data))
	for _, m := range res.Data {
		models = append(models, promptscore.Model{
			ID:            m.ID,
			Name:          m.Name,
			Provider:      promptscore.ProviderFromID(m.ID),
			ContextLength: m.ContextLength,
			Pricing: promptscore.Pricing{
				PromptPerToken:     parsePrice(m.Pricing.Prompt),
				CompletionPerToken: parsePrice(m.Pricing.Completion),
			},
		})
	}
	return models, nil
}

// parsePrice reads a per-token price. OpenRouter reports prices as decimal
// strings; anything unreadable or negative counts as free.
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// classify maps SDK failures onto promptscore error kinds.
func classify(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return promptscore.ClassifyStatus(op, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return promptscore.NetworkError(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return promptscore.NetworkError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

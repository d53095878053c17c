// Package claude implements model calls and key checks against the
// Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.ChatClient  = (*Client)(nil)
	_ promptscore.KeyVerifier = (*Client)(nil)
)

// KeyPrefix is the prefix of every Anthropic API key.
const KeyPrefix = "sk-ant-"

// DefaultMaxTokens is used when a request sets no limit; the Messages API
// requires one.
const DefaultMaxTokens = 4096

// Config holds transport settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements promptscore.ChatClient and promptscore.KeyVerifier.
// The Messages API has no JSON schema mode, so a request's ResponseSchema
// is left to the prompt.
type Client struct {
	client anthropic.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(""),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Client{client: anthropic.NewClient(opts...)}
}

// Complete sends req to the Messages API.
func (c *Client) Complete(ctx context.Context, req promptscore.CompletionRequest) (*promptscore.Completion, error) {
	maxTokens := int64(DefaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ModelName(req.Model)),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(req.User),
			},
		}},
	}
	if req.Temperature != nil {
		// The Messages API caps temperature at 1.
		params.Temperature = anthropic.Float(min(*req.Temperature, 1))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		return nil, classify("claude.complete", err)
	}

	var text strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	return &promptscore.Completion{
		Content: text.String(),
		Usage:   promptscore.NewTokenUsage(int(message.Usage.InputTokens), int(message.Usage.OutputTokens)),
	}, nil
}

// VerifyKey checks apiKey by listing a single model.
func (c *Client) VerifyKey(ctx context.Context, apiKey string) error {
	_, err := c.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}, option.WithAPIKey(apiKey))
	if err != nil {
		return classify("claude.verify_key", err)
	}
	return nil
}

// ModelName strips the catalog's provider prefix from a model ID.
func ModelName(id string) string {
	return strings.TrimPrefix(id, "anthropic/")
}

// classify maps SDK failures onto promptscore error kinds.
func classify(op string, err error) error {
	var apiErr *anthropic.Error
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

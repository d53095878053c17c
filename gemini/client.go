package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/fwojciec/promptscore"
	"google.golang.org/genai"
)

// Client wraps the Gemini genai.Client for a single API key.
type Client struct {
	client *genai.Client
}

// ClientConfig holds transport settings shared by every Client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Client with the given API key.
func NewClient(ctx context.Context, apiKey string, cfg ClientConfig) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// Factory returns a ClientFactory that builds genai-backed clients.
func Factory(cfg ClientConfig) ClientFactory {
	return func(ctx context.Context, apiKey string) (GenerativeClient, error) {
		return NewClient(ctx, apiKey, cfg)
	}
}

// GenerateContent implements GenerativeClient by delegating to the genai.Client.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	genaiContents := make([]*genai.Content, len(contents))
	for i, content := range contents {
		parts := make([]*genai.Part, len(content.Parts))
		for j, part := range content.Parts {
			parts[j] = &genai.Part{Text: part.Text}
		}
		genaiContents[i] = &genai.Content{Role: genai.RoleUser, Parts: parts}
	}

	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: config.ResponseMIMEType,
		Temperature:      config.Temperature,
		MaxOutputTokens:  config.MaxOutputTokens,
	}
	if config.SystemInstruction != nil {
		parts := make([]*genai.Part, len(config.SystemInstruction.Parts))
		for i, part := range config.SystemInstruction.Parts {
			parts[i] = &genai.Part{Text: part.Text}
		}
		genaiConfig.SystemInstruction = &genai.Content{Parts: parts}
	}
	if config.ResponseSchema != nil {
		genaiConfig.ResponseJsonSchema = config.ResponseSchema
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genaiContents, genaiConfig)
	if err != nil {
		return nil, wrapAPIError("gemini.generate", err)
	}

	resp := &GenerateContentResponse{Text: result.Text()}
	if result.UsageMetadata != nil {
		resp.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.CandidatesTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// ListModels implements GenerativeClient by requesting a single page of models.
func (c *Client) ListModels(ctx context.Context) error {
	_, err := c.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	if err != nil {
		return wrapAPIError("gemini.list_models", err)
	}
	return nil
}

// wrapAPIError classifies genai failures by HTTP status and transport errors
// as network failures.
func wrapAPIError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return promptscore.ClassifyStatus(op, apiErr.Code,
			fmt.Errorf("gemini API error (HTTP %d): %s", apiErr.Code, apiErr.Message))
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return promptscore.NetworkError(op, err)
	}
	return err
}

// Compile-time check that Client implements GenerativeClient.
var _ GenerativeClient = (*Client)(nil)

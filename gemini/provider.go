// Package gemini implements model calls against the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.ChatClient  = (*Provider)(nil)
	_ promptscore.KeyVerifier = (*Provider)(nil)
)

// KeyPrefix is empty: Gemini keys have no stable prefix.
const KeyPrefix = ""

// Provider implements promptscore.ChatClient and promptscore.KeyVerifier
// using Google Gemini. A client is built per call because the API key
// travels with each request.
type Provider struct {
	newClient ClientFactory
}

// NewProvider creates a new Provider.
func NewProvider(newClient ClientFactory) *Provider {
	return &Provider{newClient: newClient}
}

// Complete sends req to Gemini.
func (p *Provider) Complete(ctx context.Context, req promptscore.CompletionRequest) (*promptscore.Completion, error) {
	client, err := p.newClient(ctx, req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	contents := []*Content{{
		Parts: []*Part{{Text: req.User}},
	}}

	resp, err := client.GenerateContent(ctx, ModelName(req.Model), contents, BuildConfig(req))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini: returned nil response")
	}

	return &promptscore.Completion{
		Content: resp.Text,
		Usage:   promptscore.NewTokenUsage(resp.PromptTokens, resp.CandidatesTokens),
	}, nil
}

// VerifyKey checks apiKey by listing models.
func (p *Provider) VerifyKey(ctx context.Context, apiKey string) error {
	client, err := p.newClient(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("gemini: create client: %w", err)
	}
	return client.ListModels(ctx)
}

// ModelName strips the catalog's provider prefix from a model ID.
func ModelName(id string) string {
	return strings.TrimPrefix(id, "google/")
}

// BuildConfig returns the GenerateContentConfig for req.
func BuildConfig(req promptscore.CompletionRequest) *GenerateContentConfig {
	config := &GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &Content{
			Parts: []*Part{{Text: req.System}},
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if req.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.ResponseSchema
	}
	return config
}

// ClientFactory creates a GenerativeClient bound to an API key.
type ClientFactory func(ctx context.Context, apiKey string) (GenerativeClient, error)

// GenerativeClient abstracts the Gemini API for testing.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
	ListModels(ctx context.Context) error
}

// Content represents a message in a Gemini conversation.
type Content struct {
	Parts []*Part
}

// Part represents a part of a message.
type Part struct {
	Text string
}

// GenerateContentConfig holds configuration for content generation.
type GenerateContentConfig struct {
	SystemInstruction *Content
	Temperature       *float32
	MaxOutputTokens   int32
	ResponseMIMEType  string
	ResponseSchema    map[string]any
}

// GenerateContentResponse holds the response from content generation.
type GenerateContentResponse struct {
	Text             string
	PromptTokens     int
	CandidatesTokens int
}

// MockGenerativeClient is a mock implementation of GenerativeClient for testing.
type MockGenerativeClient struct {
	GenerateContentFn func(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
	ListModelsFn      func(ctx context.Context) error
}

func (m *MockGenerativeClient) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	return m.GenerateContentFn(ctx, model, contents, config)
}

func (m *MockGenerativeClient) ListModels(ctx context.Context) error {
	return m.ListModelsFn(ctx)
}

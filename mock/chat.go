package mock

import (
	"context"

	"github.com/fwojciec/promptscore"
)

// Compile-time interface verification.
var (
	_ promptscore.ChatClient   = (*ChatClient)(nil)
	_ promptscore.KeyVerifier  = (*KeyVerifier)(nil)
	_ promptscore.ModelCatalog = (*ModelCatalog)(nil)
)

// ChatClient is a mock implementation of promptscore.ChatClient.
type ChatClient struct {
	CompleteFn func(ctx context.Context, req promptscore.CompletionRequest) (*promptscore.Completion, error)
}

func (c *ChatClient) Complete(ctx context.Context, req promptscore.CompletionRequest) (*promptscore.Completion, error) {
	return c.CompleteFn(ctx, req)
}

// KeyVerifier is a mock implementation of promptscore.KeyVerifier.
type KeyVerifier struct {
	VerifyKeyFn func(ctx context.Context, apiKey string) error
}

func (v *KeyVerifier) VerifyKey(ctx context.Context, apiKey string) error {
	return v.VerifyKeyFn(ctx, apiKey)
}

// ModelCatalog is a mock implementation of promptscore.ModelCatalog.
type ModelCatalog struct {
	ModelsFn func(ctx context.Context) ([]promptscore.Model, error)
}

func (c *ModelCatalog) Models(ctx context.Context) ([]promptscore.Model, error) {
	return c.ModelsFn(ctx)
}

package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

const maxTokens = 1024

type client struct {
	clientPool *sync.Map
}

func NewAnthropicClient() providers.Client {
	return &client{
		clientPool: &sync.Map{},
	}
}

func (c *client) Describe(
	ctx context.Context,
	config *providers.Config,
	input providers.DescribeInput,
	tier, mode string,
) (*domain.ItemDescription, error) {
	if config.Credentials.ApiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	anthropicClient := c.getOrCreateClient(config.Credentials.ApiKey)

	var blocks []anthropic.ContentBlockParamUnion
	if len(input.ImageData) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			input.ImageMIMEType,
			base64.StdEncoding.EncodeToString(input.ImageData),
		))
	}
	if input.TextQuery != "" {
		blocks = append(blocks, anthropic.NewTextBlock("User query: "+input.TextQuery))
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("empty describe input")
	}

	model := anthropic.ModelClaudeHaiku4_5
	if config.Model != "" {
		model = anthropic.Model(config.Model)
	}

	message, err := anthropicClient.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: providers.BuildPrompt(tier, mode), Type: "text"},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("no completions returned")
	}

	return providers.ParseDescription(message.Content[0].Text)
}

func (c *client) getOrCreateClient(apiKey string) anthropic.Client {
	if cached, ok := c.clientPool.Load(apiKey); ok {
		if existing, ok := cached.(anthropic.Client); ok {
			return existing
		}
	}
	created := anthropic.NewClient(option.WithAPIKey(apiKey))
	c.clientPool.Store(apiKey, created)
	return created
}

package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

const defaultModel = "gpt-4o-mini"

type client struct {
	clientPool *sync.Map
}

func NewOpenaiClient() providers.Client {
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

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	openaiClient := c.getOrCreateClient(config.Credentials.ApiKey)

	var messages []openai.ChatCompletionMessageParamUnion
	messages = append(messages, openai.SystemMessage(providers.BuildPrompt(tier, mode)))

	if len(input.ImageData) > 0 {
		dataURL := fmt.Sprintf(
			"data:%s;base64,%s",
			input.ImageMIMEType,
			base64.StdEncoding.EncodeToString(input.ImageData),
		)
		messages = append(messages, openai.UserMessage(
			[]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			},
		))
	}
	if input.TextQuery != "" {
		messages = append(messages, openai.UserMessage("User query: "+input.TextQuery))
	}

	resp, err := openaiClient.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completions returned")
	}

	return providers.ParseDescription(resp.Choices[0].Message.Content)
}

func (c *client) getOrCreateClient(apiKey string) openai.Client {
	if cached, ok := c.clientPool.Load(apiKey); ok {
		if existing, ok := cached.(openai.Client); ok {
			return existing
		}
	}
	created := openai.NewClient(option.WithAPIKey(apiKey))
	c.clientPool.Store(apiKey, created)
	return created
}

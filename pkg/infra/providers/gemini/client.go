package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
)

const defaultModel = "gemini-2.0-flash"

type client struct{}

func NewGeminiClient() providers.Client {
	return &client{}
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

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Credentials.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	parts := []*genai.Part{
		{Text: providers.BuildPrompt(tier, mode)},
	}
	if len(input.ImageData) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: input.ImageMIMEType,
				Data:     input.ImageData,
			},
		})
	}
	if input.TextQuery != "" {
		parts = append(parts, &genai.Part{Text: "User query: " + input.TextQuery})
	}

	result, err := genaiClient.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: parts, Role: "user"}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := result.Text()
	if responseText == "" {
		return nil, fmt.Errorf("no completions returned")
	}

	return providers.ParseDescription(responseText)
}

package providers

import (
	"context"

	"github.com/snapstyle/snapstyle-backend/pkg/domain"
)

// Search modes understood by the description prompt and the orchestrator.
const (
	ModeExact        = "exact"
	ModeAlternatives = "alternatives"
)

type Config struct {
	Credentials Credentials `json:"credentials"`
	Model       string      `json:"model"`
}

type Credentials struct {
	ApiKey string `json:"api_key"`
}

// DescribeInput carries one uploaded photo or text query. Exactly one of
// ImageData and TextQuery is expected to be set.
type DescribeInput struct {
	ImageData     []byte
	ImageMIMEType string
	TextQuery     string
}

//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter

// Client is the AI description collaborator: it turns an item payload into
// a structured ItemDescription.
type Client interface {
	Describe(ctx context.Context, config *Config, input DescribeInput, tier, mode string) (*domain.ItemDescription, error)
}

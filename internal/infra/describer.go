package infra

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// DefaultVisionModel is used when no model is configured.
const DefaultVisionModel = "llava"

const describePrompt = "Describe the content of this screenshot in two or three plain sentences. " +
	"Mention any visible text, websites and whether people appear undressed."

// PlaceholderDescription is returned when no real description is available.
func PlaceholderDescription(at time.Time) string {
	return fmt.Sprintf("Screenshot captured at %s. Contains visual content that requires analysis.",
		at.UTC().Format(time.RFC3339))
}

// PlaceholderDescriber implements domain.ImageDescriber without any vision backend.
type PlaceholderDescriber struct{}

// Describe returns the placeholder for the frame's capture time.
func (PlaceholderDescriber) Describe(ctx context.Context, img domain.ImageData) string {
	at := img.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	return PlaceholderDescription(at)
}

// chatClient is the part of the ollama client used here.
type chatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// OllamaDescriber implements domain.ImageDescriber with a local vision model,
// so screenshots never leave the machine.
type OllamaDescriber struct {
	client   chatClient
	model    string
	fallback domain.ImageDescriber
	logger   *zap.Logger
}

// NewOllamaDescriber connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllamaDescriber(baseURL, model string, logger *zap.Logger) (*OllamaDescriber, error) {
	var (
		client *api.Client
		err    error
	)

	if baseURL != "" {
		u, perr := url.Parse(baseURL)
		if perr != nil {
			return nil, fmt.Errorf("invalid ollama URL: %w", perr)
		}
		client = api.NewClient(u, &http.Client{})
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	return newOllamaDescriberWithClient(client, model, logger), nil
}

func newOllamaDescriberWithClient(client chatClient, model string, logger *zap.Logger) *OllamaDescriber {
	if model == "" {
		model = DefaultVisionModel
	}
	return &OllamaDescriber{
		client:   client,
		model:    model,
		fallback: PlaceholderDescriber{},
		logger:   logger,
	}
}

// Describe asks the model for a summary. Errors and empty answers fall back to the placeholder.
func (d *OllamaDescriber) Describe(ctx context.Context, img domain.ImageData) string {
	stream := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: describePrompt,
				Images:  []api.ImageData{img.Bytes},
			},
		},
		Stream: &stream,
	}

	var sb strings.Builder
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		d.logger.Warn("image description failed, using placeholder", zap.Error(err))
		return d.fallback.Describe(ctx, img)
	}

	description := strings.TrimSpace(sb.String())
	if description == "" {
		d.logger.Warn("vision model returned no description, using placeholder")
		return d.fallback.Describe(ctx, img)
	}
	return description
}

// Ensure both describers implement domain.ImageDescriber.
var (
	_ domain.ImageDescriber = PlaceholderDescriber{}
	_ domain.ImageDescriber = (*OllamaDescriber)(nil)
)

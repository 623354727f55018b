package bedrock_summarizer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/user/change-analysis-service/internal/analysis/summary"
	"github.com/user/change-analysis-service/internal/entity"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	maxTokens        = 1000
)

var errEmptyCompletion = errors.New("model returned no text content")

// ModelInvoker is the subset of the Bedrock runtime client used here.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockSummarizer asks an Anthropic model hosted on Bedrock for a change summary.
type BedrockSummarizer struct {
	client        ModelInvoker
	modelID       string
	includeImages bool
}

// NewBedrockSummarizer loads AWS credentials from the default chain and
// creates a summarizer for modelID in region.
func NewBedrockSummarizer(ctx context.Context, region, modelID string, includeImages bool) (*BedrockSummarizer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(bedrockruntime.NewFromConfig(cfg), modelID, includeImages), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ModelInvoker, modelID string, includeImages bool) *BedrockSummarizer {
	return &BedrockSummarizer{client: client, modelID: modelID, includeImages: includeImages}
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system"`
	Messages         []message `json:"messages"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// Summarize sends the prompt, plus the screenshots when enabled, and coerces
// the first text block of the answer into a payload.
func (s *BedrockSummarizer) Summarize(ctx context.Context, in entity.SummaryInput) (*entity.SummaryPayload, error) {
	body, err := json.Marshal(s.request(in))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke %s: %w", s.modelID, err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", summary.ErrMalformed, err)
	}
	text := firstText(resp.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: %v", summary.ErrMalformed, errEmptyCompletion)
	}
	slog.Debug("Bedrock summary received", "model", s.modelID, "chars", len(text))
	return summary.Coerce(text)
}

func (s *BedrockSummarizer) request(in entity.SummaryInput) messagesRequest {
	var content []contentBlock
	if s.includeImages {
		for _, img := range [][]byte{in.PrevImage, in.CurImage} {
			if len(img) == 0 {
				continue
			}
			content = append(content, contentBlock{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: "image/png",
					Data:      base64.StdEncoding.EncodeToString(img),
				},
			})
		}
	}
	content = append(content, contentBlock{Type: "text", Text: in.Prompt})

	return messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           summary.SystemPrompt,
		Messages:         []message{{Role: "user", Content: content}},
	}
}

func firstText(blocks []contentBlock) string {
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			return b.Text
		}
	}
	return ""
}

package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"tripmail-service/internal/domain/repository"
	"tripmail-service/pkg/logger"

	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
)

// ErrEmptyModelResponse is returned when the model produced no text
var ErrEmptyModelResponse = errors.New("model returned no content")

// GeminiConfig selects the Vertex AI publisher model
type GeminiConfig struct {
	Project  string
	Location string
	Model    string
	// APIKey is optional; without it Application Default Credentials are used
	APIKey string
}

// modelName is the full resource name of the publisher model
func (c GeminiConfig) modelName() string {
	model := c.Model
	if strings.HasPrefix(model, "projects/") {
		return model
	}
	model = strings.TrimPrefix(model, "models/")
	return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", c.Project, c.Location, model)
}

func (c GeminiConfig) endpoint() string {
	if c.Location == "" || c.Location == "global" {
		return "https://aiplatform.googleapis.com/"
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/", c.Location)
}

// GeminiRepository implements the AIRepository interface over Vertex AI
// generateContent
type GeminiRepository struct {
	models *aiplatform.ProjectsLocationsPublishersModelsService
	model  string
	logger logger.Logger
}

// NewGeminiRepository creates a new Gemini repository. Extra client options
// are applied after the defaults, so callers can override the endpoint.
func NewGeminiRepository(ctx context.Context, cfg GeminiConfig, logger logger.Logger, opts ...option.ClientOption) (*GeminiRepository, error) {
	if cfg.Project == "" && !strings.HasPrefix(cfg.Model, "projects/") {
		return nil, fmt.Errorf("gcp project is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}

	clientOpts := []option.ClientOption{option.WithEndpoint(cfg.endpoint())}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := aiplatform.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aiplatform service: %w", err)
	}

	return &GeminiRepository{
		models: service.Projects.Locations.Publishers.Models,
		model:  cfg.modelName(),
		logger: logger,
	}, nil
}

// GenerateJSON sends the prompt, optional text and optional inline document
// and returns the concatenated text parts of the first candidate
func (r *GeminiRepository) GenerateJSON(ctx context.Context, req repository.AIRequest) (string, error) {
	parts := []*aiplatform.GoogleCloudAiplatformV1Part{{Text: req.Prompt}}
	if req.Text != "" {
		parts = append(parts, &aiplatform.GoogleCloudAiplatformV1Part{Text: req.Text})
	}
	if len(req.Blob) > 0 {
		parts = append(parts, &aiplatform.GoogleCloudAiplatformV1Part{
			InlineData: &aiplatform.GoogleCloudAiplatformV1Blob{
				MimeType: req.MimeType,
				Data:     base64.StdEncoding.EncodeToString(req.Blob),
			},
		})
	}

	resp, err := r.models.GenerateContent(r.model, &aiplatform.GoogleCloudAiplatformV1GenerateContentRequest{
		Contents: []*aiplatform.GoogleCloudAiplatformV1Content{{
			Role:  "user",
			Parts: parts,
		}},
		GenerationConfig: &aiplatform.GoogleCloudAiplatformV1GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyModelResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		r.logger.Warn("Model returned empty text", "finishReason", resp.Candidates[0].FinishReason)
		return "", ErrEmptyModelResponse
	}
	return text, nil
}

package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"spot-the-difference/models"
)

const (
	ImageModel = "imagen-4.0-generate-001"
	PlanModel  = "gemini-2.5-flash"
	EditModel  = "gemini-2.5-flash-image-preview"
)

// modelsAPI is the part of *genai.Models used here.
type modelsAPI interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Generator over the Gemini API.
type Gemini struct {
	models modelsAPI
	logger *slog.Logger
}

func NewGemini(ctx context.Context, apiKey string, httpClient *http.Client, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGemini(client.Models, logger), nil
}

func newGemini(m modelsAPI, logger *slog.Logger) *Gemini {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{models: m, logger: logger}
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Image{}, errors.New("prompt is required")
	}
	g.logger.InfoContext(ctx, "Generating initial image", "prompt", prompt)

	resp, err := g.models.GenerateImages(ctx, ImageModel,
		fmt.Sprintf("Photorealistic, high-detail image of: %s. Cinematic lighting, vibrant colors.", prompt),
		&genai.GenerateImagesConfig{
			NumberOfImages: 1,
			OutputMIMEType: "image/png",
			AspectRatio:    "1:1",
		})
	if err != nil {
		return Image{}, classify("generate initial image", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return Image{}, fmt.Errorf("%w: image generation produced no images", ErrNoImage)
	}
	first := resp.GeneratedImages[0]
	if first.Image == nil || len(first.Image.ImageBytes) == 0 {
		if first.RAIFilteredReason != "" {
			return Image{}, fmt.Errorf("%w: %s", ErrContentBlocked, first.RAIFilteredReason)
		}
		return Image{}, fmt.Errorf("%w: generated image data is missing", ErrNoImage)
	}
	mimeType := first.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Image{Data: first.Image.ImageBytes, MIMEType: mimeType}, nil
}

func (g *Gemini) ProposeDifferences(ctx context.Context, prompt string, count int) ([]string, error) {
	if count < models.MinGeneratedDifferences || count > models.MaxGeneratedDifferences {
		return nil, fmt.Errorf("%w: %d (want %d-%d)", ErrInvalidCount, count,
			models.MinGeneratedDifferences, models.MaxGeneratedDifferences)
	}
	g.logger.InfoContext(ctx, "Planning differences", "count", count, "prompt", prompt)

	resp, err := g.models.GenerateContent(ctx, PlanModel,
		genai.Text(planPrompt(prompt, count)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		})
	if err != nil {
		return nil, classify("plan differences", err)
	}

	differences, err := parseDifferences(responseText(resp), count)
	if err != nil {
		g.logger.WarnContext(ctx, "Failed to parse differences from model response", "error", err)
		return nil, err
	}
	return differences, nil
}

func (g *Gemini) GenerateEditedImage(ctx context.Context, original Image, differences []string) (Image, error) {
	if len(original.Data) == 0 {
		return Image{}, errors.New("original image is required")
	}
	if len(differences) == 0 {
		return Image{}, fmt.Errorf("%w: nothing to apply", ErrInvalidDifferences)
	}
	mimeType := original.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	g.logger.InfoContext(ctx, "Generating modified image", "differences", len(differences))

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: original.Data, MIMEType: mimeType}},
			{Text: editPrompt(differences)},
		},
	}}
	resp, err := g.models.GenerateContent(ctx, EditModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	})
	if err != nil {
		return Image{}, classify("generate modified image", err)
	}
	return imageFromResponse(resp)
}

// imageFromResponse checks, in order: prompt block, first inline image,
// abnormal finish reason, text feedback.
func imageFromResponse(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil {
		return Image{}, ErrNoImage
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return Image{}, fmt.Errorf("%w: reason %s. %s", ErrContentBlocked, fb.BlockReason, fb.BlockReasonMessage)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}

	if len(resp.Candidates) > 0 {
		if reason := resp.Candidates[0].FinishReason; reason != "" && reason != genai.FinishReasonStop {
			return Image{}, fmt.Errorf("%w: reason %s", ErrGenerationStopped, reason)
		}
	}

	if text := responseText(resp); text != "" {
		return Image{}, fmt.Errorf("%w: the model responded with text: %q", ErrNoImage, text)
	}
	return Image{}, ErrNoImage
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func parseDifferences(text string, count int) ([]string, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidDifferences)
	}
	var differences []string
	if err := json.Unmarshal([]byte(text), &differences); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDifferences, err)
	}
	if len(differences) != count {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidDifferences, len(differences), count)
	}
	for i, d := range differences {
		differences[i] = strings.TrimSpace(d)
		if differences[i] == "" {
			return nil, fmt.Errorf("%w: difference %d is empty", ErrInvalidDifferences, i+1)
		}
	}
	return differences, nil
}

// classify maps API quota errors to ErrRateLimited and wraps everything else.
func classify(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func planPrompt(scene string, count int) string {
	return fmt.Sprintf(`You design levels for a "spot the difference" game.
For the scene %q, list exactly %d subtle but findable differences.
Mix the kinds of change: remove an object, add a plausible object, recolor or restyle an object, or nudge an object's position.
Write each one as a short imperative instruction for a photo editor, for example "Change the cat's collar to blue."
Return only a JSON array of %d strings.`, scene, count, count)
}

func editPrompt(differences []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Edit the provided image to build a \"spot the difference\" puzzle.\n")
	fmt.Fprintf(&sb, "Apply exactly these %d changes and nothing else:\n", len(differences))
	for _, d := range differences {
		sb.WriteString("- ")
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	sb.WriteString("Each edit must be photorealistic and blend in. Everything outside the edited areas must stay identical to the original.\n")
	sb.WriteString("Return only the edited image.")
	return sb.String()
}

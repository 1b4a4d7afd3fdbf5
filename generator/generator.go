// Package generator produces puzzle images and difference lists.
package generator

import (
	"context"
	"errors"
)

var (
	ErrMissingAPIKey      = errors.New("GEMINI_API_KEY is not set")
	ErrContentBlocked     = errors.New("request was blocked by the model")
	ErrGenerationStopped  = errors.New("image generation stopped unexpectedly")
	ErrNoImage            = errors.New("model did not return an image")
	ErrInvalidDifferences = errors.New("model did not return a valid list of differences")
	ErrInvalidCount       = errors.New("difference count out of range")
	ErrRateLimited        = errors.New("generation API quota exceeded, try again later")
)

// Image is a decoded image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator is the external generative image service.
type Generator interface {
	// GenerateImage renders the original scene for a text prompt.
	GenerateImage(ctx context.Context, prompt string) (Image, error)
	// ProposeDifferences returns exactly count edit instructions for the scene.
	ProposeDifferences(ctx context.Context, prompt string, count int) ([]string, error)
	// GenerateEditedImage applies the differences to the original.
	GenerateEditedImage(ctx context.Context, original Image, differences []string) (Image, error)
}

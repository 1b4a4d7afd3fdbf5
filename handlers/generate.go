package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/generator"
	"spot-the-difference/services"
	"spot-the-difference/utils"
)

// GenerateHandler exposes the individual generation steps for clients that
// drive the pipeline themselves and submit the result to POST /games.
type GenerateHandler struct {
	Generator generator.Generator
	Logger    *slog.Logger
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type differencesRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type modifiedRequest struct {
	OriginalImage string   `json:"original_image"`
	Differences   []string `json:"differences"`
}

func (h *GenerateHandler) Image(c *fiber.Ctx) error {
	if h.Generator == nil {
		return respondError(c, h.Logger, services.ErrGeneratorUnavailable)
	}
	var req imageRequest
	if err := c.BodyParser(&req); err != nil || req.Prompt == "" {
		return badRequest(c, "prompt is required")
	}

	img, err := h.Generator.GenerateImage(c.UserContext(), req.Prompt)
	if err != nil {
		return respondError(c, h.Logger, upstream(err))
	}
	return c.JSON(fiber.Map{"image": utils.EncodeDataURL(img.Data, img.MIMEType)})
}

func (h *GenerateHandler) Differences(c *fiber.Ctx) error {
	if h.Generator == nil {
		return respondError(c, h.Logger, services.ErrGeneratorUnavailable)
	}
	var req differencesRequest
	if err := c.BodyParser(&req); err != nil || req.Prompt == "" {
		return badRequest(c, "prompt is required")
	}
	if req.Count == 0 {
		req.Count = defaultDifferenceCount
	}

	differences, err := h.Generator.ProposeDifferences(c.UserContext(), req.Prompt, req.Count)
	if err != nil {
		return respondError(c, h.Logger, upstream(err))
	}
	return c.JSON(fiber.Map{"differences": differences})
}

func (h *GenerateHandler) Modified(c *fiber.Ctx) error {
	if h.Generator == nil {
		return respondError(c, h.Logger, services.ErrGeneratorUnavailable)
	}
	var req modifiedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.Differences) == 0 {
		return badRequest(c, "differences are required")
	}
	original, err := decodeImage(req.OriginalImage)
	if err != nil {
		return badRequest(c, "original_image: "+err.Error())
	}

	img, err := h.Generator.GenerateEditedImage(c.UserContext(), original, req.Differences)
	if err != nil {
		return respondError(c, h.Logger, upstream(err))
	}
	return c.JSON(fiber.Map{"image": utils.EncodeDataURL(img.Data, img.MIMEType)})
}

// upstream marks generator failures as upstream unless they are caller errors.
func upstream(err error) error {
	if errors.Is(err, generator.ErrInvalidCount) {
		return err
	}
	return fmt.Errorf("%w: %w", services.ErrUpstream, err)
}

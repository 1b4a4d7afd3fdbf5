// handlers/game.go
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"spot-the-difference/generator"
	"spot-the-difference/middleware"
	"spot-the-difference/services"
	"spot-the-difference/utils"
)

const defaultDifferenceCount = 5

type GameHandler struct {
	Games  *services.GameService
	Plays  *services.PlayService
	Logger *slog.Logger
}

type createGameRequest struct {
	Prompt        string   `json:"prompt"`
	CreatorName   string   `json:"creator_name"`
	OriginalImage string   `json:"original_image"`
	ModifiedImage string   `json:"modified_image"`
	Differences   []string `json:"differences"`
	IsPublic      *bool    `json:"is_public"`
}

type generateGameRequest struct {
	Prompt          string `json:"prompt"`
	CreatorName     string `json:"creator_name"`
	DifferenceCount int    `json:"difference_count"`
	IsPublic        *bool  `json:"is_public"`
}

type verifyRequest struct {
	Answer     string `json:"answer"`
	PlayerName string `json:"player_name"`
}

// CreateGame stores a round whose images the client already has. Images come
// either as data URLs in a JSON body or as multipart file parts.
func (h *GameHandler) CreateGame(c *fiber.Ctx) error {
	var (
		req                createGameRequest
		original, modified generator.Image
		err                error
	)
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		req, original, modified, err = parseMultipartGame(c)
	} else {
		req, original, modified, err = parseJSONGame(c)
	}
	if err != nil {
		return badRequest(c, err.Error())
	}

	game, err := h.Games.CreateGameRound(c.UserContext(), services.CreateGameRoundInput{
		CreatorID:   middleware.UserID(c),
		CreatorName: displayName(c, req.CreatorName),
		Prompt:      req.Prompt,
		Original:    original,
		Modified:    modified,
		Differences: req.Differences,
		IsPublic:    boolOr(req.IsPublic, true),
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(game)
}

func parseJSONGame(c *fiber.Ctx) (req createGameRequest, original, modified generator.Image, err error) {
	if err = c.BodyParser(&req); err != nil {
		return req, original, modified, errors.New("invalid request body")
	}
	if original, err = decodeImage(req.OriginalImage); err != nil {
		return req, original, modified, fmt.Errorf("original_image: %w", err)
	}
	if modified, err = decodeImage(req.ModifiedImage); err != nil {
		return req, original, modified, fmt.Errorf("modified_image: %w", err)
	}
	return req, original, modified, nil
}

func parseMultipartGame(c *fiber.Ctx) (req createGameRequest, original, modified generator.Image, err error) {
	form, err := c.MultipartForm()
	if err != nil {
		return req, original, modified, errors.New("invalid multipart body")
	}
	req.Prompt = c.FormValue("prompt")
	req.CreatorName = c.FormValue("creator_name")
	req.Differences = form.Value["differences"]
	if v := c.FormValue("is_public"); v != "" {
		public, perr := strconv.ParseBool(v)
		if perr != nil {
			return req, original, modified, errors.New("is_public must be a boolean")
		}
		req.IsPublic = &public
	}

	if original, err = formImage(form, "original_image"); err != nil {
		return req, original, modified, err
	}
	if modified, err = formImage(form, "modified_image"); err != nil {
		return req, original, modified, err
	}
	return req, original, modified, nil
}

func formImage(form *multipart.Form, field string) (generator.Image, error) {
	files := form.File[field]
	if len(files) == 0 {
		return generator.Image{}, fmt.Errorf("%s: %w", field, utils.ErrEmptyImage)
	}
	data, mimeType, err := utils.ReadImageFile(files[0])
	if err != nil {
		return generator.Image{}, fmt.Errorf("%s: %w", field, err)
	}
	return generator.Image{Data: data, MIMEType: mimeType}, nil
}

// GenerateGame runs the whole generation pipeline server-side.
func (h *GameHandler) GenerateGame(c *fiber.Ctx) error {
	var req generateGameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.DifferenceCount == 0 {
		req.DifferenceCount = defaultDifferenceCount
	}

	game, err := h.Games.GenerateGameRound(c.UserContext(), services.GenerateGameRoundInput{
		CreatorID:       middleware.UserID(c),
		CreatorName:     displayName(c, req.CreatorName),
		Prompt:          req.Prompt,
		DifferenceCount: req.DifferenceCount,
		IsPublic:        boolOr(req.IsPublic, true),
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(game)
}

func (h *GameHandler) RandomGame(c *fiber.Ctx) error {
	game, err := h.Games.RandomUnplayedGame(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(game)
}

func (h *GameHandler) GetGame(c *fiber.Ctx) error {
	game, err := h.Games.PublicGame(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(game)
}

func (h *GameHandler) CommunityGames(c *fiber.Ctx) error {
	games, err := h.Games.CommunityGames(c.UserContext(), c.QueryInt("limit", services.DefaultCommunityLimit))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(games)
}

func (h *GameHandler) VerifyAnswer(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := h.Plays.VerifyAnswer(c.UserContext(), services.VerifyAnswerInput{
		GameID:     c.Params("id"),
		PlayerID:   middleware.UserID(c),
		PlayerName: displayName(c, req.PlayerName),
		Answer:     req.Answer,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(result)
}

// GetPlay reports whether the caller already played the game.
func (h *GameHandler) GetPlay(c *fiber.Ctx) error {
	play, err := h.Plays.GetPlay(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(fiber.Map{"played": play != nil, "play": play})
}

func decodeImage(payload string) (generator.Image, error) {
	data, mimeType, err := utils.DecodeImage(payload)
	if err != nil {
		return generator.Image{}, err
	}
	return generator.Image{Data: data, MIMEType: mimeType}, nil
}

// displayName prefers the Gateway header over the request body.
func displayName(c *fiber.Ctx, fromBody string) string {
	if name := middleware.UserName(c); name != "" {
		return name
	}
	if name := strings.TrimSpace(fromBody); name != "" {
		return name
	}
	return "Anonymous"
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"spot-the-difference/generator"
	"spot-the-difference/metrics"
	"spot-the-difference/models"
)

// ErrUpstream wraps failures of the generator or the blob store.
var ErrUpstream = errors.New("upstream service failed")

const (
	maxSlugLength         = 80
	DefaultCommunityLimit = 12
	MaxListLimit          = 50
)

// BlobStore persists image bytes and returns their public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type GameService struct {
	DB        *gorm.DB
	Quota     *QuotaService
	Store     BlobStore
	Generator generator.Generator

	logger  *slog.Logger
	metrics *metrics.Metrics

	// pick returns a uniform index in [0, n).
	pick  func(n int) int
	newID func() string
}

func NewGameService(db *gorm.DB, quota *QuotaService, store BlobStore, gen generator.Generator, logger *slog.Logger, m *metrics.Metrics) *GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &GameService{
		DB:        db,
		Quota:     quota,
		Store:     store,
		Generator: gen,
		logger:    logger,
		metrics:   m,
		pick:      rand.IntN,
		newID:     uuid.NewString,
	}
}

// CreateGameRoundInput carries a round whose images were produced elsewhere.
type CreateGameRoundInput struct {
	CreatorID   string
	CreatorName string
	Prompt      string
	Original    generator.Image
	Modified    generator.Image
	Differences []string
	IsPublic    bool
}

func (in *CreateGameRoundInput) validate() error {
	if in.CreatorID == "" {
		return ErrInvalidUserID
	}
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if len(in.Original.Data) == 0 || len(in.Modified.Data) == 0 {
		return fmt.Errorf("%w: both images are required", ErrInvalidInput)
	}
	if len(in.Differences) == 0 {
		return fmt.Errorf("%w: at least one difference is required", ErrInvalidInput)
	}
	for i, d := range in.Differences {
		in.Differences[i] = strings.TrimSpace(d)
		if in.Differences[i] == "" {
			return fmt.Errorf("%w: difference %d is empty", ErrInvalidInput, i+1)
		}
	}
	return nil
}

// GenerateGameRoundInput asks the service to produce the images itself.
type GenerateGameRoundInput struct {
	CreatorID       string
	CreatorName     string
	Prompt          string
	DifferenceCount int
	IsPublic        bool
}

// CreateGameRound reserves quota, uploads both images and stores the round.
// A failure after the reservation leaves the quota consumed.
func (s *GameService) CreateGameRound(ctx context.Context, in CreateGameRoundInput) (*models.GameRound, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.Quota.Reserve(ctx, in.CreatorID); err != nil {
		return nil, err
	}

	game, err := s.store(ctx, in)
	if err != nil {
		s.quotaLeaked(ctx, in.CreatorID, "store", err)
		return nil, err
	}
	return game, nil
}

// GenerateGameRound runs the full pipeline: reserve, generate the original,
// plan differences, generate the modified image, then store.
func (s *GameService) GenerateGameRound(ctx context.Context, in GenerateGameRoundInput) (*models.GameRound, error) {
	if in.CreatorID == "" {
		return nil, ErrInvalidUserID
	}
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if in.DifferenceCount < models.MinGeneratedDifferences || in.DifferenceCount > models.MaxGeneratedDifferences {
		return nil, fmt.Errorf("%w: difference count must be between %d and %d",
			ErrInvalidInput, models.MinGeneratedDifferences, models.MaxGeneratedDifferences)
	}
	if s.Generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	if _, err := s.Quota.Reserve(ctx, in.CreatorID); err != nil {
		return nil, err
	}

	original, err := s.Generator.GenerateImage(ctx, in.Prompt)
	if err != nil {
		return nil, s.generationFailed(ctx, in.CreatorID, "image", err)
	}
	differences, err := s.Generator.ProposeDifferences(ctx, in.Prompt, in.DifferenceCount)
	if err != nil {
		return nil, s.generationFailed(ctx, in.CreatorID, "differences", err)
	}
	modified, err := s.Generator.GenerateEditedImage(ctx, original, differences)
	if err != nil {
		return nil, s.generationFailed(ctx, in.CreatorID, "modified", err)
	}

	game, err := s.store(ctx, CreateGameRoundInput{
		CreatorID:   in.CreatorID,
		CreatorName: in.CreatorName,
		Prompt:      in.Prompt,
		Original:    original,
		Modified:    modified,
		Differences: differences,
		IsPublic:    in.IsPublic,
	})
	if err != nil {
		s.quotaLeaked(ctx, in.CreatorID, "store", err)
		return nil, err
	}
	return game, nil
}

// store uploads both images concurrently and inserts the round.
func (s *GameService) store(ctx context.Context, in CreateGameRoundInput) (*models.GameRound, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("%w: blob store is not configured", ErrUpstream)
	}
	gameID := s.newID()
	prefix := fmt.Sprintf("games/%s/%s", in.CreatorID, gameID)

	var originalURL, modifiedURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := s.Store.Upload(gctx, prefix+"/original.png", in.Original.Data, contentType(in.Original))
		originalURL = url
		return err
	})
	g.Go(func() error {
		url, err := s.Store.Upload(gctx, prefix+"/modified.png", in.Modified.Data, contentType(in.Modified))
		modifiedURL = url
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: failed to upload images: %w", ErrUpstream, err)
	}

	game := &models.GameRound{
		ID:               gameID,
		CreatorID:        in.CreatorID,
		CreatorName:      in.CreatorName,
		Prompt:           in.Prompt,
		Slug:             promptSlug(in.Prompt),
		OriginalImageURL: originalURL,
		ModifiedImageURL: modifiedURL,
		Differences:      in.Differences,
		DifficultyRange:  models.RangeFor(len(in.Differences)),
		IsPublic:         in.IsPublic,
	}
	if err := s.DB.WithContext(ctx).Create(game).Error; err != nil {
		return nil, fmt.Errorf("failed to save game round: %w", err)
	}

	s.metrics.GamesCreated.Inc()
	s.logger.InfoContext(ctx, "Created game round",
		"game_id", game.ID,
		"creator_id", game.CreatorID,
		"differences", len(game.Differences),
		"difficulty", game.DifficultyRange,
		"public", game.IsPublic,
	)
	return game, nil
}

func (s *GameService) generationFailed(ctx context.Context, userID, step string, err error) error {
	s.metrics.GenerationFailures.WithLabelValues(step).Inc()
	s.quotaLeaked(ctx, userID, step, err)
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func (s *GameService) quotaLeaked(ctx context.Context, userID, step string, err error) {
	s.metrics.QuotaLeaks.Inc()
	s.logger.WarnContext(ctx, "Game creation failed after quota was reserved; quota stays consumed",
		"user_id", userID,
		"step", step,
		"error", err,
	)
}

// RandomUnplayedGame picks a public round the player neither created nor
// played yet.
func (s *GameService) RandomUnplayedGame(ctx context.Context, playerID string) (*models.PublicGameRound, error) {
	if playerID == "" {
		return nil, ErrInvalidUserID
	}

	played := s.DB.Model(&models.GamePlay{}).Select("game_id").Where("player_id = ?", playerID)

	var candidates []models.GameRound
	if err := s.DB.WithContext(ctx).
		Where("is_public = ? AND creator_id <> ?", true, playerID).
		Where("id NOT IN (?)", played).
		Order("created_at DESC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list unplayed games: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoGamesAvailable
	}

	picked := candidates[s.pick(len(candidates))].Public()
	return &picked, nil
}

// PublicGame loads a round for a player about to play it.
func (s *GameService) PublicGame(ctx context.Context, gameID, viewerID string) (*models.PublicGameRound, error) {
	game, err := s.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsPublic || game.CreatorID == viewerID {
		return nil, ErrCannotPlay
	}
	public := game.Public()
	return &public, nil
}

// CommunityGames lists the newest public rounds.
func (s *GameService) CommunityGames(ctx context.Context, limit int) ([]models.PublicGameRound, error) {
	if limit <= 0 {
		limit = DefaultCommunityLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var games []models.GameRound
	if err := s.DB.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list community games: %w", err)
	}

	out := make([]models.PublicGameRound, len(games))
	for i := range games {
		out[i] = games[i].Public()
	}
	return out, nil
}

// CreatorGames returns every round the user created, ground truth included.
func (s *GameService) CreatorGames(ctx context.Context, creatorID string) ([]models.GameRound, error) {
	if creatorID == "" {
		return nil, ErrInvalidUserID
	}
	var games []models.GameRound
	if err := s.DB.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&games).Error; err != nil {
		return nil, fmt.Errorf("failed to list creator games: %w", err)
	}
	return games, nil
}

func (s *GameService) findGame(ctx context.Context, gameID string) (*models.GameRound, error) {
	if gameID == "" {
		return nil, ErrGameNotFound
	}
	var game models.GameRound
	if err := s.DB.WithContext(ctx).Where("id = ?", gameID).Take(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	return &game, nil
}

func promptSlug(prompt string) string {
	s := slug.Make(prompt)
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	return s
}

func contentType(img generator.Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	return "image/png"
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"spot-the-difference/generator"
	"spot-the-difference/metrics"
	"spot-the-difference/middleware"
	"spot-the-difference/models"
	"spot-the-difference/services"
	"spot-the-difference/utils"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type FakeBlobStore struct{}

func (FakeBlobStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.test/" + key, nil
}

type FakeGenerator struct {
	GenerateImageFn      func(ctx context.Context, prompt string) (generator.Image, error)
	ProposeDifferencesFn func(ctx context.Context, prompt string, count int) ([]string, error)
}

func (f *FakeGenerator) GenerateImage(ctx context.Context, prompt string) (generator.Image, error) {
	if f.GenerateImageFn != nil {
		return f.GenerateImageFn(ctx, prompt)
	}
	return generator.Image{Data: pngBytes, MIMEType: "image/png"}, nil
}

func (f *FakeGenerator) ProposeDifferences(ctx context.Context, prompt string, count int) ([]string, error) {
	if f.ProposeDifferencesFn != nil {
		return f.ProposeDifferencesFn(ctx, prompt, count)
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("change %d", i+1)
	}
	return out, nil
}

func (f *FakeGenerator) GenerateEditedImage(_ context.Context, _ generator.Image, _ []string) (generator.Image, error) {
	return generator.Image{Data: pngBytes, MIMEType: "image/png"}, nil
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T, gen generator.Generator) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, services.Migrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	quota := services.NewQuotaService(db, 2, 100, log, m)
	games := services.NewGameService(db, quota, FakeBlobStore{}, gen, log, m)
	plays := services.NewPlayService(db, nil, log, m)
	users := services.NewUserService(db, log)
	leaderboard := services.NewLeaderboardService(db, nil, 10, log)

	app := fiber.New()
	routes := Routes{
		Games:       &GameHandler{Games: games, Plays: plays, Logger: log},
		Users:       &UserHandler{Users: users, Quota: quota, Games: games, Logger: log},
		Leaderboard: &LeaderboardHandler{Leaderboard: leaderboard, Logger: log},
		Generate:    &GenerateHandler{Generator: gen, Logger: log},
		Limiter:     middleware.NewKeyedRateLimiter(rate.Inf, 1),
		Logger:      log,
	}
	SetupRoutes(app, routes)
	return &testServer{app: app, db: db}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) signIn(t *testing.T, userID, name string) {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/users/me", userID, map[string]string{"display_name": name})
	require.Equal(t, http.StatusOK, status)
}

func createBody(differences int) map[string]any {
	diffs := make([]string, differences)
	for i := range diffs {
		diffs[i] = fmt.Sprintf("difference %d", i+1)
	}
	img := utils.EncodeDataURL(pngBytes, "image/png")
	return map[string]any{
		"prompt":         "a quiet library",
		"original_image": img,
		"modified_image": img,
		"differences":    diffs,
	}
}

func TestCreateAndPlayFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")
	s.signIn(t, "bob", "Bob")

	status, game := s.do(t, http.MethodPost, "/games", "alice", createBody(7))
	require.Equal(t, http.StatusCreated, status)
	gameID := game["id"].(string)
	assert.Equal(t, "6-8", game["difficulty_range"])

	status, round := s.do(t, http.MethodGet, "/games/random", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, gameID, round["id"])
	assert.NotContains(t, round, "differences", "ground truth never reaches players")
	assert.NotContains(t, round, "difficulty_range")

	status, played := s.do(t, http.MethodGet, "/games/"+gameID+"/play", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, played["played"])

	status, result := s.do(t, http.MethodPost, "/games/"+gameID+"/verify", "bob", map[string]string{"answer": "6-8 differences"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, result["is_correct"])
	assert.EqualValues(t, 7, result["actual_count"])
	assert.EqualValues(t, 10, result["points_earned"])

	status, _ = s.do(t, http.MethodPost, "/games/"+gameID+"/verify", "bob", map[string]string{"answer": "6-8 differences"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/games/"+gameID+"/verify", "alice", map[string]string{"answer": "6-8 differences"})
	assert.Equal(t, http.StatusForbidden, status)

	status, me := s.do(t, http.MethodGet, "/users/me", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 10, me["score"])

	status, _ = s.do(t, http.MethodGet, "/games/random", "bob", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateGame_QuotaExceeded(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")

	for i := 0; i < 2; i++ {
		status, _ := s.do(t, http.MethodPost, "/games", "alice", createBody(4))
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := s.do(t, http.MethodPost, "/games", "alice", createBody(4))
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "user", body["scope"])
	quota := body["quota"].(map[string]any)
	assert.EqualValues(t, 0, quota["remaining"])

	status, mine := s.do(t, http.MethodGet, "/users/me/quota", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, mine)
}

func TestCreateGame_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")

	body := createBody(4)
	body["original_image"] = "not-an-image"
	status, _ := s.do(t, http.MethodPost, "/games", "alice", body)
	assert.Equal(t, http.StatusBadRequest, status)

	body = createBody(0)
	status, _ = s.do(t, http.MethodPost, "/games", "alice", body)
	assert.Equal(t, http.StatusBadRequest, status)

	var user models.User
	require.NoError(t, s.db.Where("id = ?", "alice").Take(&user).Error)
	assert.Zero(t, user.GamesCreated, "rejected requests never spend quota")
}

func TestVerifyAnswer_Errors(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")
	s.signIn(t, "bob", "Bob")
	_, game := s.do(t, http.MethodPost, "/games", "alice", createBody(4))
	gameID := game["id"].(string)

	status, _ := s.do(t, http.MethodPost, "/games/"+gameID+"/verify", "bob", map[string]string{"answer": "many"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/games/missing/verify", "bob", map[string]string{"answer": "3-5"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSecuredRoutesRequireUser(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, http.MethodGet, "/games/random", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/quota/app", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLeaderboardAndCommunity(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")
	s.signIn(t, "bob", "Bob")
	_, game := s.do(t, http.MethodPost, "/games", "alice", createBody(4))
	s.do(t, http.MethodPost, "/games/"+game["id"].(string)+"/verify", "bob", map[string]string{"answer": "3-5"})

	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	var entries []models.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].UserID)
	assert.Equal(t, int64(10), entries[0].Score)

	req = httptest.NewRequest(http.MethodGet, "/games/community?limit=5", nil)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	var rounds []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rounds))
	require.Len(t, rounds, 1)
	assert.NotContains(t, rounds[0], "differences")
}

func TestGenerateGame(t *testing.T) {
	s := newTestServer(t, &FakeGenerator{})
	s.signIn(t, "alice", "Alice")

	status, game := s.do(t, http.MethodPost, "/games/generate", "alice", map[string]any{"prompt": "a busy market"})
	require.Equal(t, http.StatusCreated, status)
	diffs := game["differences"].([]any)
	assert.Len(t, diffs, 5)

	status, _ = s.do(t, http.MethodPost, "/games/generate", "alice", map[string]any{"prompt": "x", "difference_count": 42})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGenerate_Unavailable(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")

	status, _ := s.do(t, http.MethodPost, "/games/generate", "alice", map[string]any{"prompt": "a busy market"})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = s.do(t, http.MethodPost, "/generate/image", "alice", map[string]any{"prompt": "a busy market"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestGenerateSteps(t *testing.T) {
	gen := &FakeGenerator{}
	s := newTestServer(t, gen)

	status, body := s.do(t, http.MethodPost, "/generate/image", "alice", map[string]any{"prompt": "a harbour"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["image"], "data:image/png;base64,")

	status, body = s.do(t, http.MethodPost, "/generate/differences", "alice", map[string]any{"prompt": "a harbour", "count": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["differences"], 3)

	status, body = s.do(t, http.MethodPost, "/generate/modified", "alice", map[string]any{
		"original_image": utils.EncodeDataURL(pngBytes, "image/png"),
		"differences":    []string{"add a boat"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["image"], "data:image/png;base64,")

	gen.GenerateImageFn = func(context.Context, string) (generator.Image, error) {
		return generator.Image{}, generator.ErrContentBlocked
	}
	status, _ = s.do(t, http.MethodPost, "/generate/image", "alice", map[string]any{"prompt": "a harbour"})
	assert.Equal(t, http.StatusBadGateway, status)

	gen.ProposeDifferencesFn = func(context.Context, string, int) ([]string, error) {
		return nil, fmt.Errorf("plan differences: %w", generator.ErrRateLimited)
	}
	status, _ = s.do(t, http.MethodPost, "/generate/differences", "alice", map[string]any{"prompt": "a harbour"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidInput, http.StatusBadRequest},
		{generator.ErrInvalidCount, http.StatusBadRequest},
		{services.ErrGameNotFound, http.StatusNotFound},
		{services.ErrNoGamesAvailable, http.StatusNotFound},
		{services.ErrCannotPlay, http.StatusForbidden},
		{services.ErrAlreadyPlayed, http.StatusConflict},
		{fmt.Errorf("%w: %w", services.ErrUpstream, io.EOF), http.StatusBadGateway},
		{services.ErrGeneratorUnavailable, http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestCreateGame_Multipart(t *testing.T) {
	s := newTestServer(t, nil)
	s.signIn(t, "alice", "Alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", "a snowy cabin"))
	require.NoError(t, mw.WriteField("is_public", "false"))
	for _, d := range []string{"chimney smoke", "red door", "missing tree", "extra window", "sled"} {
		require.NoError(t, mw.WriteField("differences", d))
	}
	for _, field := range []string{"original_image", "modified_image"} {
		part, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/games", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set("X-User-ID", "alice")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var game models.GameRound
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&game))
	assert.Equal(t, 5, game.DifferenceCount())
	assert.Equal(t, models.RangeEasy, game.DifficultyRange)
	assert.False(t, game.IsPublic)
	assert.Equal(t, "a-snowy-cabin", game.Slug)
}

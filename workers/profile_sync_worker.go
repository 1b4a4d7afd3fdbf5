// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"spot-the-difference/models"
	"spot-the-difference/services"
)

// RemoteProfile matches one entry of the profile service's change feed.
type RemoteProfile struct {
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the feed.
type GetProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileStore applies a profile to the local users table without touching
// scores or quota counters.
type ProfileStore interface {
	SyncUser(ctx context.Context, in services.SignIn) (*models.User, error)
}

// ProfileSyncWorker pulls display name, email and avatar changes from the
// profile service so leaderboards show fresh names between sign-ins.
type ProfileSyncWorker struct {
	store        ProfileStore
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
	logger       *slog.Logger

	since time.Time
}

func NewProfileSyncWorker(store ProfileStore, baseURL, endpointPath, serviceToken string, interval time.Duration, logger *slog.Logger) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileSyncWorker{
		store:        store,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	w.logger.Info("🔁 Starting Profile Sync Worker (profile service → users)", "interval", w.interval)
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill) from the beginning of time
	if err := w.syncBatch(ctx); err != nil {
		w.logger.Warn("⚠️ Initial profile sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx); err != nil {
				w.logger.Error("❌ Profile sync batch failed", "error", err)
			}
		case <-ctx.Done():
			w.logger.Info("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// syncBatch fetches profile changes newer than the last seen update and
// applies them. The watermark stays put if any profile in the batch failed.
func (w *ProfileSyncWorker) syncBatch(ctx context.Context) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", w.since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}
	if len(response.Users) == 0 {
		w.logger.Debug("No profile changes", "since", w.since)
		return nil
	}

	var upserted, failed int
	latest := w.since
	for _, remote := range response.Users {
		if remote.ExternalID == "" {
			continue
		}
		in := services.SignIn{
			ID:          remote.ExternalID,
			DisplayName: remote.Username,
			Email:       remote.Email,
		}
		if remote.ProfilePictureURL != nil {
			in.PhotoURL = *remote.ProfilePictureURL
		}
		if _, err := w.store.SyncUser(ctx, in); err != nil {
			failed++
			w.logger.Warn("⚠️ Failed to apply profile", "external_id", remote.ExternalID, "error", err)
			continue
		}
		upserted++
		if remote.UpdatedAt.After(latest) {
			latest = remote.UpdatedAt
		}
	}
	if failed == 0 {
		w.since = latest
	}

	w.logger.Info("✅ Synced profiles", "received", len(response.Users), "upserted", upserted, "errors", failed, "watermark", w.since)
	return nil
}

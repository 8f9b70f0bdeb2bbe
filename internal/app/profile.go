package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// ProfileStore holds the signed-in user's profile and settings and applies
// partial updates through the gateway. Absent records mean "not loaded yet",
// never a valid empty state.
type ProfileStore struct {
	gw      Gateway
	session Session
	logger  *slog.Logger

	mu       sync.Mutex
	profile  *waterhealth.Profile
	settings *waterhealth.UserSettings
	loading  bool
	// loadSeq stamps each Load; results carrying a stale stamp are
	// discarded so an older fetch can never overwrite a newer one.
	loadSeq uint64
}

// NewProfileStore creates a profile store.
func NewProfileStore(gw Gateway, session Session, logger *slog.Logger) (*ProfileStore, error) {
	if gw == nil {
		return nil, errors.New("gateway cannot be nil")
	}
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &ProfileStore{gw: gw, session: session, logger: logger}, nil
}

// Profile returns the loaded profile, or nil when none is loaded.
func (s *ProfileStore) Profile() *waterhealth.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Settings returns the loaded settings, or nil when none are loaded.
func (s *ProfileStore) Settings() *waterhealth.UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	v := *s.settings
	return &v
}

// Loading reports whether a load is in flight.
func (s *ProfileStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Load fetches the profile and settings for the signed-in user. Without a
// session it clears the store and returns silently. Fetch failures are
// logged and leave the records absent; they are not surfaced to the caller.
func (s *ProfileStore) Load(ctx context.Context) {
	user := s.session.CurrentUser()

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	if user == nil {
		s.profile = nil
		s.settings = nil
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	profile := s.fetchProfile(ctx)
	settings := s.fetchSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.loadSeq {
		// A newer load superseded this one.
		return
	}
	s.profile = profile
	s.settings = settings
	s.loading = false
}

func (s *ProfileStore) fetchProfile(ctx context.Context) *waterhealth.Profile {
	rows, err := s.gw.Select(ctx, "profiles", SelectQuery{Limit: 1})
	if err != nil {
		s.logger.Error("failed to fetch profile", "error", err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	var profile waterhealth.Profile
	if err := decodeRow(rows[0], &profile); err != nil {
		s.logger.Error("failed to decode profile", "error", err)
		return nil
	}
	return &profile
}

func (s *ProfileStore) fetchSettings(ctx context.Context) *waterhealth.UserSettings {
	rows, err := s.gw.Select(ctx, "user_settings", SelectQuery{Limit: 1})
	if err != nil {
		s.logger.Error("failed to fetch settings", "error", err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	var settings waterhealth.UserSettings
	if err := decodeRow(rows[0], &settings); err != nil {
		s.logger.Error("failed to decode settings", "error", err)
		return nil
	}
	return &settings
}

// UpdateProfile applies a partial profile update and refreshes the held
// profile from the returned row. Local state is untouched on failure.
func (s *ProfileStore) UpdateProfile(ctx context.Context, changes Row) error {
	user := s.session.CurrentUser()
	if user == nil {
		return ErrNotSignedIn
	}

	s.mu.Lock()
	seq := s.loadSeq
	s.mu.Unlock()

	row, err := s.gw.Update(ctx, "profiles", UpdateRequest{Changes: changes})
	if err != nil {
		return fmt.Errorf("profile update failed: %w", err)
	}

	var profile waterhealth.Profile
	if err := decodeRow(row, &profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.loadSeq {
		s.profile = &profile
	}
	return nil
}

// UpdateSettings applies a partial settings update and refreshes the held
// settings from the returned row. Local state is untouched on failure.
func (s *ProfileStore) UpdateSettings(ctx context.Context, changes Row) error {
	user := s.session.CurrentUser()
	if user == nil {
		return ErrNotSignedIn
	}

	s.mu.Lock()
	seq := s.loadSeq
	s.mu.Unlock()

	row, err := s.gw.Update(ctx, "user_settings", UpdateRequest{Changes: changes})
	if err != nil {
		return fmt.Errorf("settings update failed: %w", err)
	}

	var settings waterhealth.UserSettings
	if err := decodeRow(row, &settings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.loadSeq {
		s.settings = &settings
	}
	return nil
}

// profileImageKey builds the deterministic object key for a user's profile
// image. The key carries the original extension; re-uploading overwrites.
func profileImageKey(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return userID + "/profile" + ext
}

// UploadProfileImage stores the image under the user's deterministic key,
// writes the resulting public URL onto the profile, and refreshes the held
// profile. Returns the public URL.
func (s *ProfileStore) UploadProfileImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return "", ErrNotSignedIn
	}

	key := profileImageKey(user.ID, filename)
	url, err := s.gw.Upload(ctx, "profiles", key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("profile image upload failed: %w", err)
	}

	if err := s.UpdateProfile(ctx, Row{"profile_image_url": url}); err != nil {
		return "", err
	}
	return url, nil
}

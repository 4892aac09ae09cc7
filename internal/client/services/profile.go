package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/xplit/internal/client/client"
	"github.com/dmitrijs2005/xplit/internal/client/models"
	"github.com/dmitrijs2005/xplit/internal/common"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// ProfileGate answers whether the signed-in identity finished profile setup
// and manages the profile record.
type ProfileGate interface {
	// HasProfile fails closed: any error counts as "no profile".
	HasProfile(ctx context.Context) bool
	// CheckProfile is HasProfile with the error exposed.
	CheckProfile(ctx context.Context) (bool, error)
	IsHandleAvailable(ctx context.Context, handle string) (bool, error)
	CreateProfile(ctx context.Context, handle, displayName string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error)
	UploadAvatar(ctx context.Context, body io.Reader, contentType string) (string, error)
	// Invalidate drops cached profile state, e.g. after sign-out.
	Invalidate()
}

// SessionSource yields the current session; AuthGateway satisfies it.
type SessionSource interface {
	GetSession(ctx context.Context) (*models.Session, error)
}

// ProfileOptions tunes the profile service.
type ProfileOptions struct {
	CacheTTL time.Duration
	Now      func() time.Time
}

const (
	DefaultProfileCacheTTL = 5 * time.Minute
	DefaultSearchLimit     = 20
	maxSearchLimit         = 100
	maxDisplayNameLen      = 50
)

// ErrAvatarStorageDisabled is returned by UploadAvatar without a bucket.
var ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")

var handleRe = regexp.MustCompile(`^[a-z0-9._-]{2,30}$`)

type profileEntry struct {
	exists bool
	at     time.Time
}

type profileService struct {
	sessions SessionSource
	client   client.Client
	avatars  AvatarStore
	log      logging.Logger
	opts     ProfileOptions

	mu    sync.Mutex
	cache map[string]profileEntry
}

// NewProfileGate builds the profile service. avatars may be nil when avatar
// storage is not configured.
func NewProfileGate(sessions SessionSource, c client.Client, avatars AvatarStore, log logging.Logger, opts ProfileOptions) ProfileGate {
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultProfileCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &profileService{
		sessions: sessions,
		client:   c,
		avatars:  avatars,
		log:      log,
		opts:     opts,
		cache:    make(map[string]profileEntry),
	}
}

// NormalizeHandle trims and lowercases a handle as typed by the user.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// ValidateHandle checks a normalized handle.
func ValidateHandle(handle string) error {
	if !handleRe.MatchString(handle) {
		return common.NewValidationError("handle",
			"Handle must be 2-30 characters using lowercase letters, numbers, dots, underscores or hyphens.")
	}
	return nil
}

func (p *profileService) HasProfile(ctx context.Context) bool {
	exists, err := p.CheckProfile(ctx)
	if err != nil {
		p.log.Warn(ctx, "profile check failed, assuming no profile", "error", err)
		return false
	}
	return exists
}

func (p *profileService) CheckProfile(ctx context.Context) (bool, error) {
	sess, err := p.sessions.GetSession(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrProfileCheckFailed, err)
	}
	if sess == nil || sess.User == nil {
		return false, nil
	}
	userID := sess.User.ID

	if exists, ok := p.cached(userID); ok {
		return exists, nil
	}

	var exists bool
	if err := p.client.CallRPC(ctx, sess.AccessToken, "user_has_profile", nil, &exists); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrProfileCheckFailed, err)
	}
	p.remember(userID, exists)
	return exists, nil
}

func (p *profileService) IsHandleAvailable(ctx context.Context, handle string) (bool, error) {
	handle = NormalizeHandle(handle)
	if err := ValidateHandle(handle); err != nil {
		return false, err
	}
	sess, err := p.requireSession(ctx)
	if err != nil {
		return false, err
	}

	var available bool
	args := map[string]string{"p_handle": handle}
	if err := p.client.CallRPC(ctx, sess.AccessToken, "is_handle_available", args, &available); err != nil {
		return false, fmt.Errorf("check handle: %w", err)
	}
	return available, nil
}

// CreateProfile creates the profile once per identity. A handle claimed
// between the availability check and the insert still reports
// ErrHandleTaken.
func (p *profileService) CreateProfile(ctx context.Context, handle, displayName string) (*models.Profile, error) {
	handle = NormalizeHandle(handle)
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, common.NewValidationError("displayName", "Please enter a display name.")
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, common.NewValidationError("displayName",
			fmt.Sprintf("Display name must be at most %d characters.", maxDisplayNameLen))
	}

	available, err := p.IsHandleAvailable(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, common.ErrHandleTaken
	}

	sess, err := p.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	args := map[string]string{"p_handle": handle, "p_display_name": displayName}
	if err := p.client.CallRPC(ctx, sess.AccessToken, "create_profile", args, &profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	p.remember(sess.User.ID, true)
	return &profile, nil
}

func (p *profileService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return nil, common.NewValidationError("displayName", "Please enter a display name.")
		}
		upd.DisplayName = &name
	}
	sess, err := p.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := p.client.CallRPC(ctx, sess.AccessToken, "update_profile", upd, &profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &profile, nil
}

func (p *profileService) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	sess, err := p.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Profile
	args := map[string]any{"q": query, "limit_count": limit}
	if err := p.client.CallRPC(ctx, sess.AccessToken, "search_profiles", args, &out); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return out, nil
}

// UploadAvatar stores an avatar image under the caller's user id and returns
// its public URL.
func (p *profileService) UploadAvatar(ctx context.Context, body io.Reader, contentType string) (string, error) {
	if p.avatars == nil {
		return "", ErrAvatarStorageDisabled
	}
	sess, err := p.requireSession(ctx)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := path.Join(sess.User.ID, "avatar-"+uuid.NewString()+avatarExt(contentType))
	url, err := p.avatars.Put(ctx, key, body, contentType)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return url, nil
}

func (p *profileService) Invalidate() {
	p.mu.Lock()
	clear(p.cache)
	p.mu.Unlock()
}

func (p *profileService) requireSession(ctx context.Context) (*models.Session, error) {
	sess, err := p.sessions.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.User == nil {
		return nil, common.ErrNoSession
	}
	return sess, nil
}

func (p *profileService) cached(userID string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.cache[userID]
	if !ok || p.opts.CacheTTL < 0 || p.opts.Now().Sub(e.at) >= p.opts.CacheTTL {
		return false, false
	}
	return e.exists, true
}

func (p *profileService) remember(userID string, exists bool) {
	p.mu.Lock()
	p.cache[userID] = profileEntry{exists: exists, at: p.opts.Now()}
	p.mu.Unlock()
}

func avatarExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

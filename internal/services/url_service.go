package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/cache"
	"github.com/aldidev/snipurl/internal/models"
	apperrors "github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/logger"
	"github.com/aldidev/snipurl/pkg/metrics"
)

const (
	urlCachePrefix = "url:"
	urlCacheTTL    = time.Hour
)

var (
	// ErrURLNotFound indicates the shortened link does not exist.
	ErrURLNotFound = apperrors.New("URL_NOT_FOUND", "Shortened URL not found", http.StatusNotFound)
	// ErrShortenTaken indicates the short handle is already claimed.
	ErrShortenTaken = apperrors.New("URL_SHORTEN_TAKEN", "this shorten is already in use", http.StatusConflict)
)

// CreateURLInput describes a new shortened link.
type CreateURLInput struct {
	UserID  string
	Origin  string
	Shorten string
}

// URLService manages shortened links and their click counters. Resolutions
// go through the cache store when one is configured.
type URLService struct {
	db    *gorm.DB
	store cache.Store
	log   *zap.Logger
}

// NewURLService constructs a URLService. The cache store is optional.
func NewURLService(db *gorm.DB, store cache.Store) (*URLService, error) {
	if db == nil {
		return nil, errors.New("url service: db is required")
	}
	return &URLService{db: db, store: store, log: logger.WithModule("urls")}, nil
}

// Create claims a short handle for the user.
func (s *URLService) Create(ctx context.Context, input CreateURLInput) (*models.URL, error) {
	ctx = ensureContext(ctx)

	origin := strings.TrimSpace(input.Origin)
	shorten := strings.TrimSpace(input.Shorten)
	if input.UserID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}
	if origin == "" {
		return nil, apperrors.NewBadRequest("origin url is required")
	}
	if shorten == "" {
		return nil, apperrors.NewBadRequest("shorten is required")
	}

	url := &models.URL{
		Origin:  origin,
		Shorten: shorten,
		UserID:  input.UserID,
	}

	if err := s.db.WithContext(ctx).Create(url).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrShortenTaken.WithInternal(err)
		}
		return nil, fmt.Errorf("url service: create: %w", err)
	}

	return url, nil
}

// ListByUser returns the user's links, newest first.
func (s *URLService) ListByUser(ctx context.Context, userID string) ([]models.URL, error) {
	ctx = ensureContext(ctx)

	var urls []models.URL
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&urls).Error
	if err != nil {
		return nil, fmt.Errorf("url service: list: %w", err)
	}
	return urls, nil
}

// Get returns a single link owned by the user.
func (s *URLService) Get(ctx context.Context, userID, shorten string) (*models.URL, error) {
	ctx = ensureContext(ctx)

	var url models.URL
	err := s.db.WithContext(ctx).
		Take(&url, "user_id = ? AND shorten = ?", userID, shorten).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrURLNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("url service: get: %w", err)
	}
	return &url, nil
}

// Resolve maps a short handle to its origin and counts the click. The
// cached origin is preferred; the click increment always hits the database.
func (s *URLService) Resolve(ctx context.Context, shorten string) (string, error) {
	ctx = ensureContext(ctx)

	shorten = strings.TrimSpace(shorten)
	if shorten == "" {
		return "", ErrURLNotFound
	}

	if origin, ok := s.cachedOrigin(ctx, shorten); ok {
		if err := s.countClick(ctx, shorten); err != nil {
			return "", err
		}
		metrics.Redirects.WithLabelValues("hit").Inc()
		return origin, nil
	}

	var url models.URL
	err := s.db.WithContext(ctx).Take(&url, "shorten = ?", shorten).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.Redirects.WithLabelValues("miss").Inc()
		return "", ErrURLNotFound
	}
	if err != nil {
		return "", fmt.Errorf("url service: resolve: %w", err)
	}

	if err := s.countClick(ctx, shorten); err != nil {
		return "", err
	}

	s.cacheOrigin(ctx, shorten, url.Origin)
	metrics.Redirects.WithLabelValues("hit").Inc()
	return url.Origin, nil
}

// Remove deletes a link owned by the user and invalidates its cache entry.
func (s *URLService) Remove(ctx context.Context, userID, shorten string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND shorten = ?", userID, shorten).
		Delete(&models.URL{})
	if result.Error != nil {
		return fmt.Errorf("url service: remove: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrURLNotFound
	}

	s.invalidate(ctx, shorten)
	return nil
}

// RemoveMany deletes the user's links matching the supplied ids and reports
// how many rows went away.
func (s *URLService) RemoveMany(ctx context.Context, userID string, ids []string) (int64, error) {
	ctx = ensureContext(ctx)

	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	var shortens []string
	err := s.db.WithContext(ctx).
		Model(&models.URL{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Pluck("shorten", &shortens).Error
	if err != nil {
		return 0, fmt.Errorf("url service: remove many: %w", err)
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.URL{})
	if result.Error != nil {
		return 0, fmt.Errorf("url service: remove many: %w", result.Error)
	}

	s.invalidate(ctx, shortens...)
	return result.RowsAffected, nil
}

func (s *URLService) countClick(ctx context.Context, shorten string) error {
	err := s.db.WithContext(ctx).
		Model(&models.URL{}).
		Where("shorten = ?", shorten).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("url service: count click: %w", err)
	}
	return nil
}

func (s *URLService) cachedOrigin(ctx context.Context, shorten string) (string, bool) {
	if s.store == nil {
		return "", false
	}

	value, ok, err := s.store.Get(ctx, urlCachePrefix+shorten)
	if err != nil {
		s.log.Warn("cache lookup failed", zap.String("shorten", shorten), zap.Error(err))
		return "", false
	}
	if !ok || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

func (s *URLService) cacheOrigin(ctx context.Context, shorten, origin string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, urlCachePrefix+shorten, []byte(origin), urlCacheTTL); err != nil {
		s.log.Warn("cache store failed", zap.String("shorten", shorten), zap.Error(err))
	}
}

func (s *URLService) invalidate(ctx context.Context, shortens ...string) {
	if s.store == nil || len(shortens) == 0 {
		return
	}

	keys := make([]string, len(shortens))
	for i, shorten := range shortens {
		keys[i] = urlCachePrefix + shorten
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidate failed", zap.Error(err))
	}
}

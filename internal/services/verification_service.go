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
	"gorm.io/gorm/clause"

	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/crypto"
	apperrors "github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/logger"
	"github.com/aldidev/snipurl/pkg/mail"
	"github.com/aldidev/snipurl/pkg/metrics"
)

// DefaultCodeTTL is how long an issued verification code stays redeemable.
const DefaultCodeTTL = 5 * time.Minute

var (
	// ErrAlreadyVerified rejects verification flows for verified accounts.
	ErrAlreadyVerified = apperrors.New("VERIFY_ALREADY_DONE", "Account already verified", http.StatusConflict)
	// ErrInvalidCode covers missing, expired and already-redeemed codes alike.
	ErrInvalidCode = apperrors.New("VERIFY_INVALID_CODE", "Invalid verification code", http.StatusBadRequest)
)

// VerificationLinks configures the URLs embedded in verification mails.
type VerificationLinks struct {
	WebsiteURL string
	DirectURL  string
}

// VerificationOption customises a VerificationService.
type VerificationOption func(*VerificationService)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCodeTTL overrides the validity window for issued codes.
func WithCodeTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

// WithLinks sets the verification URLs embedded in outgoing mail.
func WithLinks(links VerificationLinks) VerificationOption {
	return func(s *VerificationService) {
		s.links = links
	}
}

// RedeemInput identifies the account being verified. When both fields are
// set the user id wins.
type RedeemInput struct {
	UserID string
	Email  string
	Code   int
}

// VerificationService issues one-time email codes and redeems them.
type VerificationService struct {
	db      *gorm.DB
	users   *UserService
	mailer  mail.Mailer
	from    string
	links   VerificationLinks
	codeTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewVerificationService constructs a VerificationService instance.
func NewVerificationService(db *gorm.DB, users *UserService, mailer mail.Mailer, from string, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}
	if users == nil {
		return nil, errors.New("verification service: user service is required")
	}
	if mailer == nil {
		return nil, errors.New("verification service: mailer is required")
	}

	svc := &VerificationService{
		db:      db,
		users:   users,
		mailer:  mailer,
		from:    from,
		codeTTL: DefaultCodeTTL,
		now:     time.Now,
		log:     logger.WithModule("verification"),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// IssueAndSend creates a fresh code for the account behind email, replacing
// any previous one, and mails it out. A failed send rolls the code back so
// the mailbox and the database cannot disagree.
func (s *VerificationService) IssueAndSend(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByIdentifier(ctx, "", email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := crypto.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("verification service: generate code: %w", err)
	}

	record := models.VerificationCode{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: s.now().Add(s.codeTTL),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "updated_at"}),
		}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("verification service: store code: %w", err)
	}

	if err := s.mailer.Send(ctx, s.buildMessage(user, code)); err != nil {
		metrics.VerificationMails.WithLabelValues("failed").Inc()
		s.log.Warn("verification mail failed", zap.String("email", user.Email), zap.Error(err))

		if delErr := s.db.WithContext(ctx).
			Where("email = ?", user.Email).
			Delete(&models.VerificationCode{}).Error; delErr != nil {
			s.log.Error("rollback verification code", zap.String("email", user.Email), zap.Error(delErr))
		}

		return apperrors.Wrap(err, "Could not send verification email")
	}

	metrics.VerificationMails.WithLabelValues("sent").Inc()
	return nil
}

// Redeem consumes a code and marks the account verified. Deleting the code
// row is the commit point, so concurrent redeems of the same code resolve
// to a single winner.
func (s *VerificationService) Redeem(ctx context.Context, input RedeemInput) error {
	ctx = ensureContext(ctx)

	user, err := s.resolveUser(ctx, input)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	var record models.VerificationCode
	err = s.db.WithContext(ctx).
		Where("email = ? AND code = ? AND expires_at > ?", user.Email, input.Code, s.now()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("verification service: lookup code: %w", err)
	}

	result := s.db.WithContext(ctx).Delete(&models.VerificationCode{}, "id = ?", record.ID)
	if result.Error != nil {
		return fmt.Errorf("verification service: consume code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidCode
	}

	return s.users.SetVerified(ctx, user.ID)
}

// PurgeExpired removes codes whose validity window has lapsed and returns
// how many rows were deleted.
func (s *VerificationService) PurgeExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&models.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("verification service: purge expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *VerificationService) resolveUser(ctx context.Context, input RedeemInput) (*models.User, error) {
	if strings.TrimSpace(input.UserID) != "" {
		return s.users.GetByID(ctx, input.UserID)
	}
	return s.users.GetByIdentifier(ctx, "", input.Email)
}

func (s *VerificationService) buildMessage(user *models.User, code int) mail.Message {
	websiteLink := s.links.WebsiteURL + user.ID
	directLink := fmt.Sprintf("%s?userId=%s&verificationCode=%d", s.links.DirectURL, user.ID, code)

	body := fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your verification code is <strong>%d</strong>. It expires in %s.</p>"+
			"<p>Enter it at <a href=%q>%s</a> or verify directly via <a href=%q>this link</a>.</p>",
		user.Username, code, s.codeTTL, websiteLink, websiteLink, directLink,
	)

	return mail.Message{
		From:    s.from,
		To:      user.Email,
		Subject: "Verify your email",
		Body:    body,
	}
}

package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/crypto"
)

func newTestVerificationService(t *testing.T, db *gorm.DB, users *UserService, mailer *fakeMailer, opts ...VerificationOption) *VerificationService {
	t.Helper()

	base := []VerificationOption{
		WithLinks(VerificationLinks{
			WebsiteURL: "https://snipurl.example/verify/",
			DirectURL:  "https://snipurl.example/api/mail/verify",
		}),
	}

	svc, err := NewVerificationService(db, users, mailer, "no-reply@snipurl.example", append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func storedCode(t *testing.T, db *gorm.DB, email string) models.VerificationCode {
	t.Helper()

	var record models.VerificationCode
	require.NoError(t, db.Take(&record, "email = ?", email).Error)
	return record
}

func TestIssueAndSendStoresCodeAndMails(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	mailer := &fakeMailer{}
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	svc := newTestVerificationService(t, db, users, mailer,
		WithClock(func() time.Time { return current }),
	)

	user := createTestUser(t, users, "alice", "alice@example.com")

	require.NoError(t, svc.IssueAndSend(context.Background(), "Alice@Example.com"))

	record := storedCode(t, db, "alice@example.com")
	require.GreaterOrEqual(t, record.Code, crypto.VerificationCodeMin)
	require.LessOrEqual(t, record.Code, crypto.VerificationCodeMax)
	require.Equal(t, current.Add(DefaultCodeTTL), record.ExpiresAt.UTC())

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	require.Equal(t, "no-reply@snipurl.example", msg.From)
	require.Equal(t, "alice@example.com", msg.To)
	require.Contains(t, msg.Body, fmt.Sprintf("%d", record.Code))
	require.Contains(t, msg.Body, "https://snipurl.example/verify/"+user.ID)
	require.Contains(t, msg.Body,
		fmt.Sprintf("https://snipurl.example/api/mail/verify?userId=%s&verificationCode=%d", user.ID, record.Code))
}

func TestIssueAndSendReplacesPreviousCode(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	mailer := &fakeMailer{}
	svc := newTestVerificationService(t, db, users, mailer)

	createTestUser(t, users, "alice", "alice@example.com")
	ctx := context.Background()

	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	first := storedCode(t, db, "alice@example.com")

	// Retry until the freshly drawn code differs, then confirm the old
	// row was replaced rather than joined by a second one.
	var second models.VerificationCode
	for i := 0; i < 20; i++ {
		require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
		second = storedCode(t, db, "alice@example.com")
		if second.Code != first.Code {
			break
		}
	}

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NotEqual(t, first.Code, second.Code)
}

func TestIssueAndSendUnknownAndVerifiedAccounts(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	svc := newTestVerificationService(t, db, users, &fakeMailer{})
	ctx := context.Background()

	require.ErrorIs(t, svc.IssueAndSend(ctx, "ghost@example.com"), ErrUserNotFound)

	user := createTestUser(t, users, "alice", "alice@example.com")
	require.NoError(t, users.SetVerified(ctx, user.ID))
	require.ErrorIs(t, svc.IssueAndSend(ctx, "alice@example.com"), ErrAlreadyVerified)
}

func TestIssueAndSendRollsBackOnMailFailure(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	mailer := &fakeMailer{failing: true}
	svc := newTestVerificationService(t, db, users, mailer)

	createTestUser(t, users, "alice", "alice@example.com")

	err := svc.IssueAndSend(context.Background(), "alice@example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Could not send verification email")

	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRedeemMarksUserVerified(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	svc := newTestVerificationService(t, db, users, &fakeMailer{})
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	record := storedCode(t, db, "alice@example.com")

	require.NoError(t, svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: record.Code}))

	reloaded, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsVerified)

	// The code is consumed together with the verification.
	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.Zero(t, count)

	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: record.Code}),
		ErrAlreadyVerified,
	)
}

func TestRedeemOnVerifiedAccountKeepsCode(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	svc := newTestVerificationService(t, db, users, &fakeMailer{})
	ctx := context.Background()

	user := createTestUser(t, users, "alice", "alice@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	record := storedCode(t, db, "alice@example.com")

	// The account verifies through some other path while the code is live.
	require.NoError(t, users.SetVerified(ctx, user.ID))

	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: record.Code}),
		ErrAlreadyVerified,
	)

	// A correct code must not be consumed by the rejected attempt.
	var count int64
	require.NoError(t, db.Model(&models.VerificationCode{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRedeemByUserIDWinsOverEmail(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	svc := newTestVerificationService(t, db, users, &fakeMailer{})
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", "alice@example.com")
	createTestUser(t, users, "bob", "bob@example.com")

	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	record := storedCode(t, db, "alice@example.com")

	require.NoError(t, svc.Redeem(ctx, RedeemInput{
		UserID: alice.ID,
		Email:  "bob@example.com",
		Code:   record.Code,
	}))

	reloaded, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsVerified)
}

func TestRedeemRejectsWrongOrExpiredCode(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestVerificationService(t, db, users, &fakeMailer{},
		WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()

	createTestUser(t, users, "alice", "alice@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	record := storedCode(t, db, "alice@example.com")

	wrong := record.Code + 1
	if wrong > crypto.VerificationCodeMax {
		wrong = crypto.VerificationCodeMin
	}
	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: wrong}),
		ErrInvalidCode,
	)

	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "ghost@example.com", Code: record.Code}),
		ErrUserNotFound,
	)

	current = current.Add(DefaultCodeTTL + time.Second)
	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: record.Code}),
		ErrInvalidCode,
	)
}

func TestRedeemHonoursCustomTTL(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestVerificationService(t, db, users, &fakeMailer{},
		WithClock(func() time.Time { return current }),
		WithCodeTTL(time.Minute),
	)
	ctx := context.Background()

	createTestUser(t, users, "alice", "alice@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))
	record := storedCode(t, db, "alice@example.com")

	current = current.Add(2 * time.Minute)
	require.ErrorIs(t,
		svc.Redeem(ctx, RedeemInput{Email: "alice@example.com", Code: record.Code}),
		ErrInvalidCode,
	)
}

func TestPurgeExpired(t *testing.T) {
	db := openTestDB(t)
	users := newTestUserService(t, db)
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestVerificationService(t, db, users, &fakeMailer{},
		WithClock(func() time.Time { return current }),
	)
	ctx := context.Background()

	createTestUser(t, users, "alice", "alice@example.com")
	createTestUser(t, users, "bob", "bob@example.com")
	require.NoError(t, svc.IssueAndSend(ctx, "alice@example.com"))

	current = current.Add(DefaultCodeTTL - time.Minute)
	require.NoError(t, svc.IssueAndSend(ctx, "bob@example.com"))

	current = current.Add(2 * time.Minute)
	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	remaining := storedCode(t, db, "bob@example.com")
	require.False(t, strings.EqualFold(remaining.Email, "alice@example.com"))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/mail"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.VerificationCode{},
		&models.URL{},
		&models.CacheEntry{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newTestUserService(t *testing.T, db *gorm.DB) *UserService {
	t.Helper()

	svc, err := NewUserService(db, 4)
	require.NoError(t, err)
	return svc
}

func createTestUser(t *testing.T, users *UserService, username, email string) *models.User {
	t.Helper()

	user, err := users.Create(context.Background(), CreateUserInput{
		Username: username,
		Email:    email,
		Password: "Sup3r$ecret",
	})
	require.NoError(t, err)
	return user
}

// fakeMailer records sent messages and optionally fails.
type fakeMailer struct {
	sent    []mail.Message
	failing bool
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.failing {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

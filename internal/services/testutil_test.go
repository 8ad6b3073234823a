package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/database"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newTestTokens(t *testing.T) *auth.JWTService {
	t.Helper()

	tokens, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret",
		Issuer: "botsmith-test",
		Clock:  func() time.Time { return testClock },
	})
	require.NoError(t, err)
	return tokens
}

func newTestAccessService(t *testing.T, db *gorm.DB, opts ...AccessOption) *AccessService {
	t.Helper()

	opts = append([]AccessOption{WithAccessClock(func() time.Time { return testClock })}, opts...)
	svc, err := NewAccessService(db, newTestTokens(t), opts...)
	require.NoError(t, err)
	return svc
}

func newTestStack(t *testing.T, db *gorm.DB) (*AccessService, *UserService, *AccountService) {
	t.Helper()

	access := newTestAccessService(t, db)

	users, err := NewUserService(db,
		WithUserClock(func() time.Time { return testClock }),
		WithBotAccess(access))
	require.NoError(t, err)

	seeder, err := NewSeeder(db, "hi-hello")
	require.NoError(t, err)

	accounts, err := NewAccountService(db, access, users, seeder,
		WithAccountClock(func() time.Time { return testClock }))
	require.NoError(t, err)

	return access, users, accounts
}

func provisionTestAccount(t *testing.T, accounts *AccountService, name, email string) *ProvisionResult {
	t.Helper()

	result, err := accounts.ProvisionAccount(context.Background(), ProvisionInput{
		AccountName: name,
		Email:       email,
		FirstName:   "Test",
		LastName:    "Owner",
		Password:    "Secret123!",
	})
	require.NoError(t, err)
	return result
}

package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/database"
	"github.com/botsmithhq/botsmith/internal/models"
)

var cleanerClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openCleanerTestDB(t *testing.T) *gorm.DB {
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

func newTestCleaner(t *testing.T, db *gorm.DB, opts ...Option) *Cleaner {
	t.Helper()

	opts = append([]Option{WithNow(func() time.Time { return cleanerClock })}, opts...)
	cleaner, err := NewCleaner(db, opts...)
	require.NoError(t, err)
	return cleaner
}

func grantAged(t *testing.T, db *gorm.DB, email string, status models.AccessStatus, age time.Duration) {
	t.Helper()

	grant := models.BotAccess{
		BotID:         "bot-1",
		AccessorEmail: email,
		Role:          models.RoleTester,
		GrantedBy:     "owner@acme.test",
		BotAccountID:  "acct-1",
		Status:        status,
		InvitedAt:     cleanerClock.Add(-age),
	}
	require.NoError(t, db.Create(&grant).Error)

	// Create stamps updated_at with the wall clock; backdate it for the test.
	require.NoError(t, db.Model(&models.BotAccess{}).
		Where("id = ?", grant.ID).
		Update("updated_at", cleanerClock.Add(-age)).Error)
}

func TestExpireStaleInvites(t *testing.T) {
	db := openCleanerTestDB(t)

	grantAged(t, db, "stale@x.com", models.AccessInviteNotAccepted, 45*24*time.Hour)
	grantAged(t, db, "fresh@x.com", models.AccessInviteNotAccepted, 2*24*time.Hour)
	grantAged(t, db, "active@x.com", models.AccessActive, 45*24*time.Hour)

	cleaner := newTestCleaner(t, db)

	expired, err := cleaner.ExpireStaleInvites(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, expired)

	var stale models.BotAccess
	require.NoError(t, db.Where("accessor_email = ?", "stale@x.com").First(&stale).Error)
	require.Equal(t, models.AccessDeleted, stale.Status)

	var fresh models.BotAccess
	require.NoError(t, db.Where("accessor_email = ?", "fresh@x.com").First(&fresh).Error)
	require.Equal(t, models.AccessInviteNotAccepted, fresh.Status)

	var active models.BotAccess
	require.NoError(t, db.Where("accessor_email = ?", "active@x.com").First(&active).Error)
	require.Equal(t, models.AccessActive, active.Status)
}

func TestPurgeDeletedGrants(t *testing.T) {
	db := openCleanerTestDB(t)

	grantAged(t, db, "old@x.com", models.AccessDeleted, 120*24*time.Hour)
	grantAged(t, db, "recent@x.com", models.AccessDeleted, 10*24*time.Hour)
	grantAged(t, db, "active@x.com", models.AccessActive, 120*24*time.Hour)

	cleaner := newTestCleaner(t, db)

	purged, err := cleaner.PurgeDeletedGrants(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining []models.BotAccess
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, grant := range remaining {
		require.NotEqual(t, "old@x.com", grant.AccessorEmail)
	}
}

func TestRunOnceCoversBothJobs(t *testing.T) {
	db := openCleanerTestDB(t)

	grantAged(t, db, "stale@x.com", models.AccessInviteNotAccepted, 45*24*time.Hour)
	grantAged(t, db, "purge@x.com", models.AccessDeleted, 120*24*time.Hour)

	cleaner := newTestCleaner(t, db)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.BotAccess{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var stale models.BotAccess
	require.NoError(t, db.Where("accessor_email = ?", "stale@x.com").First(&stale).Error)
	require.Equal(t, models.AccessDeleted, stale.Status)
}

func TestCustomWindows(t *testing.T) {
	db := openCleanerTestDB(t)

	grantAged(t, db, "pending@x.com", models.AccessInviteNotAccepted, 3*24*time.Hour)

	cleaner := newTestCleaner(t, db, WithInviteMaxAge(48*time.Hour))

	expired, err := cleaner.ExpireStaleInvites(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, expired)
}

package database

import (
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.User{},
		&models.Bot{},
		&models.BotAccess{},
		&models.EmailConfirmation{},
		&models.BotSettings{},
		&models.ChatClientConfig{},
		&models.Intent{},
		&models.TrainingExample{},
		&models.BotResponse{},
		&models.Story{},
		&models.Rule{},
		&models.SessionConfig{},
		&models.HTTPAction{},
		&models.HTTPParam{},
		&models.SlotSetAction{},
		&models.FormValidationAction{},
		&models.EmailAction{},
		&models.Feedback{},
		&models.UIConfig{},
	)
}

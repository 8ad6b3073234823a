package models

import "gorm.io/datatypes"

// Bot-scoped configuration and training content. These records are seeded during
// provisioning and hard-deleted when the owning bot is removed.

// BotSettings holds per-bot runtime toggles.
type BotSettings struct {
	BaseModel

	BotID     string `gorm:"uniqueIndex;not null" json:"bot_id"`
	CreatedBy string `gorm:"not null" json:"created_by"`
}

// ChatClientConfig stores the embeddable chat widget configuration for a bot.
type ChatClientConfig struct {
	BaseModel

	BotID  string         `gorm:"uniqueIndex;not null" json:"bot_id"`
	Config datatypes.JSON `json:"config"`
}

// Intent names a user intention the bot can recognise.
type Intent struct {
	BaseModel

	BotID     string `gorm:"not null;index" json:"bot_id"`
	Name      string `gorm:"not null" json:"name"`
	CreatedBy string `json:"created_by"`
}

// TrainingExample is a single utterance labelled with an intent.
type TrainingExample struct {
	BaseModel

	BotID  string `gorm:"not null;index" json:"bot_id"`
	Intent string `gorm:"not null" json:"intent"`
	Text   string `gorm:"not null" json:"text"`
}

// BotResponse is a canned reply the bot can utter.
type BotResponse struct {
	BaseModel

	BotID string `gorm:"not null;index" json:"bot_id"`
	Name  string `gorm:"not null" json:"name"`
	Text  string `gorm:"not null" json:"text"`
}

// Story is an ordered intent/response flow.
type Story struct {
	BaseModel

	BotID  string         `gorm:"not null;index" json:"bot_id"`
	Name   string         `gorm:"not null" json:"name"`
	Events datatypes.JSON `json:"events"`
}

// Rule is a fixed single-turn conversation path.
type Rule struct {
	BaseModel

	BotID  string         `gorm:"not null;index" json:"bot_id"`
	Name   string         `gorm:"not null" json:"name"`
	Events datatypes.JSON `json:"events"`
}

// SessionConfig controls conversation session expiry for a bot.
type SessionConfig struct {
	BaseModel

	BotID          string `gorm:"uniqueIndex;not null" json:"bot_id"`
	ExpirationTime int    `gorm:"default:60" json:"expiration_time"`
	CarryOverSlots bool   `gorm:"default:true" json:"carry_over_slots"`
}

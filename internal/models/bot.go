package models

// Bot is a single conversational-agent configuration scoped to an account.
// Name is unique among active bots within the owning account.
type Bot struct {
	BaseModel

	Name      string       `gorm:"not null;index" json:"name"`
	AccountID string       `gorm:"not null;index" json:"account_id"`
	Status    EntityStatus `gorm:"not null;default:active;index" json:"status"`
}

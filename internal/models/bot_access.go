package models

import "time"

// BotAccess grants a role on a bot to an email address. At most one non-deleted
// row may exist per (bot, accessor email) pair.
type BotAccess struct {
	BaseModel

	BotID         string       `gorm:"not null;index:idx_bot_accessor" json:"bot_id"`
	AccessorEmail string       `gorm:"not null;index:idx_bot_accessor" json:"accessor_email"`
	Role          AccessRole   `gorm:"not null" json:"role"`
	GrantedBy     string       `gorm:"not null" json:"granted_by"`
	BotAccountID  string       `gorm:"not null;index" json:"bot_account_id"`
	Status        AccessStatus `gorm:"not null;index" json:"status"`

	InvitedAt  time.Time  `json:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

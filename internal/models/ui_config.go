package models

import "gorm.io/datatypes"

// UIConfig keeps per-user interface preferences (theme, layout, stepper flags).
type UIConfig struct {
	BaseModel

	User   string         `gorm:"uniqueIndex;not null" json:"user"`
	Config datatypes.JSON `json:"config"`
}

package models

import "gorm.io/datatypes"

// LicenseLimits captures per-account quota limits applied at signup.
type LicenseLimits struct {
	Bots         int `json:"bots"`
	Intents      int `json:"intents"`
	Examples     int `json:"examples"`
	Training     int `json:"training"`
	Augmentation int `json:"augmentation"`
}

// DefaultLicense is the quota set granted to newly provisioned accounts.
func DefaultLicense() LicenseLimits {
	return LicenseLimits{
		Bots:         2,
		Intents:      3,
		Examples:     20,
		Training:     3,
		Augmentation: 5,
	}
}

// Account is the top-level tenant owning users and bots.
// Name is unique among active accounts, compared case-insensitively.
type Account struct {
	BaseModel

	Name    string                                `gorm:"not null;index" json:"name"`
	OwnerID string                                `gorm:"not null" json:"owner_id"`
	License datatypes.JSONType[LicenseLimits]     `json:"license"`
	Status  EntityStatus                          `gorm:"not null;default:active;index" json:"status"`

	Users []User `gorm:"foreignKey:AccountID" json:"users,omitempty"`
	Bots  []Bot  `gorm:"foreignKey:AccountID" json:"bots,omitempty"`
}

package models

// Feedback stores a user-submitted product rating.
type Feedback struct {
	BaseModel

	Rating  float64 `gorm:"not null" json:"rating"`
	Scale   float64 `gorm:"default:5" json:"scale"`
	Comment string  `json:"comment"`
	User    string  `gorm:"not null;index" json:"user"`
}

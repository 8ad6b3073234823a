package models

import "gorm.io/datatypes"

// Custom action configuration executed by the webhook action server.

// HTTPAction calls an external endpoint and stores the reply in the action
// response slot.
type HTTPAction struct {
	BaseModel

	BotID      string `gorm:"not null;index" json:"bot_id"`
	ActionName string `gorm:"not null" json:"action_name"`
	URL        string `gorm:"not null" json:"url"`
	Method     string `gorm:"not null;default:GET" json:"method"`
	// Headers are sent verbatim on every call, typically auth material.
	Headers datatypes.JSONType[map[string]string] `json:"headers,omitempty"`
	// ResponseText is the template rendered with the endpoint reply.
	ResponseText string       `json:"response_text"`
	Params       []HTTPParam  `gorm:"foreignKey:ActionID" json:"params,omitempty"`
	Status       EntityStatus `gorm:"not null;default:active" json:"status"`
}

// HTTPParam is a single request parameter resolved against the conversation tracker.
type HTTPParam struct {
	BaseModel

	ActionID string `gorm:"not null;index" json:"action_id"`
	Key      string `gorm:"not null" json:"key"`
	// Value holds the literal value or the slot name, depending on Source.
	Value  string `json:"value"`
	Source string `gorm:"not null;default:value" json:"source"`
}

// SlotSetAction writes a fixed or reset value into a conversation slot.
type SlotSetAction struct {
	BaseModel

	BotID string `gorm:"not null;index" json:"bot_id"`
	Name  string `gorm:"not null" json:"name"`
	Slot  string `gorm:"not null" json:"slot"`
	Type  string `gorm:"not null;default:from_value" json:"type"`
	Value string `json:"value"`
}

// FormValidationAction validates a form slot against a configured semantic.
type FormValidationAction struct {
	BaseModel

	BotID    string `gorm:"not null;index" json:"bot_id"`
	Name     string `gorm:"not null" json:"name"`
	Slot     string `gorm:"not null" json:"slot"`
	Operator string `gorm:"not null" json:"operator"`
	Value    string `json:"value"`
}

// EmailAction sends a templated email when triggered from a conversation.
type EmailAction struct {
	BaseModel

	BotID        string `gorm:"not null;index" json:"bot_id"`
	ActionName   string `gorm:"not null" json:"action_name"`
	FromEmail    string `gorm:"not null" json:"from_email"`
	ToEmail      string `gorm:"not null" json:"to_email"`
	Subject      string `gorm:"not null" json:"subject"`
	ResponseText string `json:"response_text"`
}

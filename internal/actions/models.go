package actions

// ActionType enumerates the custom action kinds a bot can configure.
type ActionType string

const (
	ActionHTTP           ActionType = "http_action"
	ActionSlotSet        ActionType = "slot_set_action"
	ActionFormValidation ActionType = "form_validation_action"
	ActionEmail          ActionType = "email_action"
)

// ParameterSource enumerates where an HTTP action parameter value comes from.
type ParameterSource string

const (
	SourceValue       ParameterSource = "value"
	SourceSlot        ParameterSource = "slot"
	SourceSender      ParameterSource = "sender_id"
	SourceUserMessage ParameterSource = "user_message"
	SourceIntent      ParameterSource = "intent"
	SourceChatLog     ParameterSource = "chat_log"
)

// ResponseSlot is the conversation slot the executor fills with the action outcome.
const ResponseSlot = "BOT_ACTION_RESPONSE"

// Tracker mirrors the conversation state the webhook caller supplies.
type Tracker struct {
	SenderID      string         `json:"sender_id"`
	Slots         map[string]any `json:"slots"`
	LatestMessage LatestMessage  `json:"latest_message"`
	Events        []any          `json:"events"`
}

// LatestMessage is the most recent user utterance and its classified intent.
type LatestMessage struct {
	Text   string `json:"text"`
	Intent Intent `json:"intent"`
}

// Intent is the classified intent of a user message.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// WebhookRequest is the payload of a webhook action call.
type WebhookRequest struct {
	NextAction string  `json:"next_action" binding:"required"`
	SenderID   string  `json:"sender_id"`
	BotID      string  `json:"bot_id" binding:"required"`
	Tracker    Tracker `json:"tracker"`
}

// SlotEvent instructs the caller to write a conversation slot.
type SlotEvent struct {
	Event string `json:"event"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BotUtterance is a message the bot should send back to the user.
type BotUtterance struct {
	Text string `json:"text"`
}

// WebhookResponse is the executor's reply: slot writes plus utterances.
type WebhookResponse struct {
	Events    []SlotEvent    `json:"events"`
	Responses []BotUtterance `json:"responses"`
}

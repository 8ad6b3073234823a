package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/models"
)

// seedTemplate describes the starter content applied to a freshly provisioned bot.
type seedTemplate struct {
	Intents   map[string][]string
	Responses map[string]string
	Stories   map[string][]string
}

// seedTemplates maps template names to starter content. "hi-hello" mirrors the
// default greeting template shipped with the platform.
var seedTemplates = map[string]seedTemplate{
	"hi-hello": {
		Intents: map[string][]string{
			"greet":   {"hi", "hello", "hey there"},
			"goodbye": {"bye", "goodbye", "see you later"},
		},
		Responses: map[string]string{
			"utter_greet":   "Hey! How are you?",
			"utter_goodbye": "Bye",
		},
		Stories: map[string][]string{
			"greet":   {"greet", "utter_greet"},
			"goodbye": {"goodbye", "utter_goodbye"},
		},
	},
}

// Seeder populates default configuration and conversation content for new bots.
type Seeder struct {
	db       *gorm.DB
	template string
}

// NewSeeder builds a Seeder using the named template. Unknown templates fail at
// seed time so provisioning rollback can kick in.
func NewSeeder(db *gorm.DB, template string) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("seeder: db is required")
	}
	template = strings.TrimSpace(template)
	if template == "" {
		template = "hi-hello"
	}
	return &Seeder{db: db, template: template}, nil
}

// SeedBot writes the template's settings, intents, examples, responses, and
// stories for the bot.
func (s *Seeder) SeedBot(ctx context.Context, botID, createdBy string) error {
	tmpl, ok := seedTemplates[s.template]
	if !ok {
		return fmt.Errorf("seeder: unknown template %q", s.template)
	}

	db := s.db.WithContext(ctx)

	settings := models.BotSettings{BotID: botID, CreatedBy: createdBy}
	if err := db.Create(&settings).Error; err != nil {
		return fmt.Errorf("seeder: create settings: %w", err)
	}

	session := models.SessionConfig{BotID: botID, ExpirationTime: 60, CarryOverSlots: true}
	if err := db.Create(&session).Error; err != nil {
		return fmt.Errorf("seeder: create session config: %w", err)
	}

	chatConfig := models.ChatClientConfig{BotID: botID, Config: datatypes.JSON([]byte(`{"welcomeMessage":"Hello! How can I help you?"}`))}
	if err := db.Create(&chatConfig).Error; err != nil {
		return fmt.Errorf("seeder: create chat client config: %w", err)
	}

	for name, examples := range tmpl.Intents {
		intent := models.Intent{BotID: botID, Name: name, CreatedBy: createdBy}
		if err := db.Create(&intent).Error; err != nil {
			return fmt.Errorf("seeder: create intent %s: %w", name, err)
		}
		for _, text := range examples {
			example := models.TrainingExample{BotID: botID, Intent: name, Text: text}
			if err := db.Create(&example).Error; err != nil {
				return fmt.Errorf("seeder: create example for %s: %w", name, err)
			}
		}
	}

	for name, text := range tmpl.Responses {
		response := models.BotResponse{BotID: botID, Name: name, Text: text}
		if err := db.Create(&response).Error; err != nil {
			return fmt.Errorf("seeder: create response %s: %w", name, err)
		}
	}

	for name, events := range tmpl.Stories {
		payload, err := storyEvents(events)
		if err != nil {
			return err
		}
		story := models.Story{BotID: botID, Name: name, Events: payload}
		if err := db.Create(&story).Error; err != nil {
			return fmt.Errorf("seeder: create story %s: %w", name, err)
		}
	}

	return nil
}

func storyEvents(events []string) (datatypes.JSON, error) {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, event := range events {
		if i > 0 {
			sb.WriteByte(',')
		}
		kind := "action"
		if i%2 == 0 {
			kind = "user"
		}
		fmt.Fprintf(&sb, `{"type":%q,"name":%q}`, kind, event)
	}
	sb.WriteByte(']')
	return datatypes.JSON([]byte(sb.String())), nil
}

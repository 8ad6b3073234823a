package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/notify"
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build accept links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteEmail toggles token issuance and mail dispatch for new invites.
func WithInviteEmail(enabled bool) InviteOption {
	return func(s *InviteService) {
		s.emailEnabled = enabled
	}
}

// InviteService records collaborator invites and hands out accept links.
type InviteService struct {
	access       *AccessService
	tokens       *auth.JWTService
	dispatcher   *notify.Dispatcher
	baseURL      string
	emailEnabled bool
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(access *AccessService, tokens *auth.JWTService, dispatcher *notify.Dispatcher, opts ...InviteOption) (*InviteService, error) {
	if access == nil {
		return nil, errors.New("invite service: access service is required")
	}
	if tokens == nil {
		return nil, errors.New("invite service: token service is required")
	}

	service := &InviteService{
		access:     access,
		tokens:     tokens,
		dispatcher: dispatcher,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// InviteInput holds the parameters for inviting a collaborator to a bot.
type InviteInput struct {
	BotID         string
	AccessorEmail string
	InvitedBy     string
	BotAccountID  string
	Role          models.AccessRole
}

// Invite records a pending grant for the email. When email is enabled it signs
// a single-use token, dispatches the invite mail, and returns the accept link;
// otherwise the invite must be accepted out of band and the link is empty.
func (s *InviteService) Invite(ctx context.Context, input InviteInput) (link string, err error) {
	bot, err := s.access.Grant(ctx, GrantInput{
		BotID:         input.BotID,
		AccessorEmail: input.AccessorEmail,
		GrantedBy:     input.InvitedBy,
		BotAccountID:  input.BotAccountID,
		Role:          input.Role,
		Status:        models.AccessInviteNotAccepted,
	})
	if err != nil {
		return "", err
	}

	if !s.emailEnabled {
		return "", nil
	}

	token, err := s.tokens.IssueEmailToken(normaliseEmail(input.AccessorEmail), auth.PurposeInvite)
	if err != nil {
		return "", fmt.Errorf("invite service: issue token: %w", err)
	}

	link = s.acceptLink(bot.ID, token)
	s.dispatcher.Dispatch(notify.TemplateInvite, normaliseEmail(input.AccessorEmail),
		normaliseEmail(input.InvitedBy), bot.Name, string(input.Role), link)

	return link, nil
}

// NotifyAccepted tells the granting user their invite was accepted.
func (s *InviteService) NotifyAccepted(acceptance *InviteAcceptance) {
	if acceptance == nil || !s.emailEnabled {
		return
	}
	s.dispatcher.Dispatch(notify.TemplateInviteAccepted, acceptance.GrantedBy,
		acceptance.AccessorEmail, acceptance.BotName, string(acceptance.Role))
}

func (s *InviteService) acceptLink(botID, token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/api/bots/%s/access/accept?token=%s", s.baseURL, botID, token)
}

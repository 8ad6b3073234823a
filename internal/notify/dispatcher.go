package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/botsmithhq/botsmith/pkg/logger"
	"github.com/botsmithhq/botsmith/pkg/mail"
)

// Template names for outbound notifications.
const (
	TemplateInvite          = "invite"
	TemplateVerification    = "verification"
	TemplatePasswordReset   = "password_reset"
	TemplateInviteAccepted  = "invite_accepted"
	TemplatePasswordChanged = "password_changed"
)

const defaultDispatchTimeout = 30 * time.Second

// bodies maps template names to plain-text bodies. Substitution parameters are
// applied positionally via fmt; rendering stays deliberately simple.
var templates = map[string]struct {
	subject string
	body    string
}{
	TemplateInvite: {
		subject: "You've been invited to collaborate",
		body:    "Hello,\n\n%s has invited you to collaborate on the bot %q as %s.\nAccept the invite here: %s\n\nIf you did not expect this email, you can ignore it.\n",
	},
	TemplateVerification: {
		subject: "Confirm your email address",
		body:    "Hello %s,\n\nConfirm your email address by following this link:\n%s\n",
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		body:    "Hello %s,\n\nA password reset was requested for your account. Follow this link to choose a new password:\n%s\n\nIf you did not request a reset, you can ignore this email.\n",
	},
	TemplateInviteAccepted: {
		subject: "Your invite was accepted",
		body:    "Hello,\n\n%s accepted the invite to the bot %q and now has the %s role.\n",
	},
	TemplatePasswordChanged: {
		subject: "Your password was changed",
		body:    "Hello %s,\n\nYour password was just changed. If this wasn't you, reset it immediately.\n",
	},
}

// Dispatcher sends notification mail without blocking the calling request.
// Sends run in their own goroutine with a bounded timeout; failures are logged
// and never surface to the request path.
type Dispatcher struct {
	mailer  mail.Mailer
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher wraps a mailer. A nil mailer produces a dispatcher that drops
// everything, which keeps call sites unconditional.
func NewDispatcher(mailer mail.Mailer) *Dispatcher {
	return &Dispatcher{
		mailer:  mailer,
		timeout: defaultDispatchTimeout,
		log:     logger.WithModule("notify"),
	}
}

// Dispatch renders the named template with the given parameters and sends it
// to the recipient asynchronously.
func (d *Dispatcher) Dispatch(template, recipient string, params ...any) {
	if d == nil || d.mailer == nil || recipient == "" {
		return
	}

	tmpl, ok := templates[template]
	if !ok {
		d.log.Warn("unknown notification template", zap.String("template", template))
		return
	}

	message := mail.Message{
		To:      []string{recipient},
		Subject: tmpl.subject,
		Body:    fmt.Sprintf(tmpl.body, params...),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			d.log.Error("notification send failed",
				zap.String("template", template),
				zap.String("recipient", recipient),
				zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight sends finish. Used by tests and shutdown.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

// Sentinel errors returned by the services in this package. Handlers compare
// against these values and render them through pkg/errors.
var (
	// ErrDuplicateGrant signals a non-deleted access row already exists for the
	// (bot, accessor email) pair.
	ErrDuplicateGrant = apperrors.NewDuplicate("DUPLICATE_GRANT", "User is already a collaborator")

	// ErrNotCollaborator signals the email holds no access row on the bot.
	ErrNotCollaborator = apperrors.NewNotFound("NOT_COLLABORATOR", "User is not a collaborator")

	// ErrPendingInviteNotAccepted rejects role or status updates on a grant the
	// collaborator has not accepted yet.
	ErrPendingInviteNotAccepted = apperrors.NewInvalidState("PENDING_INVITE", "User has not accepted the invite yet")

	// ErrNoPendingInvite signals invite acceptance without a pending grant.
	ErrNoPendingInvite = apperrors.NewInvalidState("NO_PENDING_INVITE", "No pending invite found for the bot and email")

	// ErrAccessDenied signals the email holds no active grant on the bot.
	ErrAccessDenied = apperrors.New("ACCESS_DENIED", "Access to the bot is denied", http.StatusForbidden)

	ErrDuplicateAccountName = apperrors.NewDuplicate("DUPLICATE_ACCOUNT", "Account name already exists")
	ErrDuplicateBotName     = apperrors.NewDuplicate("DUPLICATE_BOT", "Bot name already exists in the account")
	ErrDuplicateEmail       = apperrors.NewDuplicate("DUPLICATE_EMAIL", "Email already registered")

	ErrAccountNotFound = apperrors.NewNotFound("ACCOUNT_NOT_FOUND", "Account does not exist")
	ErrBotNotFound     = apperrors.NewNotFound("BOT_NOT_FOUND", "Bot does not exist")
	ErrUserNotFound    = apperrors.NewNotFound("USER_NOT_FOUND", "User does not exist")

	ErrEmptyName = apperrors.NewValidation("Name cannot be empty or blank spaces")

	ErrEmailNotVerified = apperrors.New("EMAIL_NOT_VERIFIED", "Please verify your mail", http.StatusUnauthorized)
	ErrInactiveUser     = apperrors.New("USER_INACTIVE", "User account is inactive", http.StatusUnauthorized)
	ErrInactiveAccount  = apperrors.New("ACCOUNT_INACTIVE", "Account is inactive", http.StatusUnauthorized)

	// ErrAlreadyConfirmed signals a repeated email confirmation.
	ErrAlreadyConfirmed = apperrors.NewInvalidState("EMAIL_ALREADY_CONFIRMED", "Email already confirmed")

	// ErrEmailDisabled signals an email-workflow call while verification is off.
	ErrEmailDisabled = apperrors.NewValidation("Email verification is not enabled")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}

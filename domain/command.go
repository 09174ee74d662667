package domain

import (
	"errors"
	"strings"

	apperrors "wander-core/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Identity references share one syntactic scheme owned by the directory.
	_ = v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
		return ValidIdentity(fl.Field().String())
	})
	return v
}

// SendMessageCommand is the intent behind a sendMessage event.
type SendMessageCommand struct {
	SenderID   string `validate:"required,identity"`
	ReceiverID string `validate:"required,identity"`
	Text       string `validate:"required,max=2000"`
}

func (c SendMessageCommand) Validate() error {
	return firstViolation(validate.Struct(c))
}

// UpdateStatusCommand is the intent behind an updateMessageStatus event.
type UpdateStatusCommand struct {
	MessageID uuid.UUID
	Status    MessageStatus
}

func (c UpdateStatusCommand) Validate() error {
	if c.MessageID == uuid.Nil {
		return apperrors.NewValidationError("messageId", "required")
	}
	if !c.Status.Valid() {
		return apperrors.NewValidationError("status", "must be sent, delivered or read")
	}
	return nil
}

// CreateNotificationCommand is the producer-side intent behind a notification.
// RecipientID may be empty for system-wide announcements; SenderID may be
// empty when the producer is the system itself.
type CreateNotificationCommand struct {
	RecipientID string `validate:"omitempty,identity"`
	SenderID    string `validate:"omitempty,identity"`
	Content     string `validate:"required,max=500"`
	Type        string `validate:"required,max=32"`
}

func (c CreateNotificationCommand) Validate() error {
	return firstViolation(validate.Struct(c))
}

// firstViolation converts the first validator violation into the core's
// ValidationError so callers never leak library error types on the wire.
func firstViolation(err error) error {
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if ok := errors.As(err, &violations); ok && len(violations) > 0 {
		field := lowerFirst(violations[0].Field())
		return apperrors.NewValidationError(field, "failed "+violations[0].Tag()+" constraint")
	}
	return apperrors.NewValidationError("payload", err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

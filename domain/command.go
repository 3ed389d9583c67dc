package domain

import (
	"echoes/errors"
	stderrors "errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type PostEchoCommand struct {
	Content   string `validate:"notblank,max=800"`
	Signature SignatureID
}

type ReplyCommand struct {
	EchoID  uuid.UUID `validate:"required"`
	Content string    `validate:"notblank,max=1000"`
}

// NewPostEchoCommand truncates content to MaxEchoLength and validates it.
func NewPostEchoCommand(content string, signature SignatureID) (PostEchoCommand, error) {
	cmd := PostEchoCommand{Content: Truncate(content, MaxEchoLength), Signature: signature}
	return cmd, check(cmd)
}

// NewReplyCommand truncates content to MaxReplyLength and validates it.
func NewReplyCommand(echoID uuid.UUID, content string) (ReplyCommand, error) {
	cmd := ReplyCommand{EchoID: echoID, Content: Truncate(content, MaxReplyLength)}
	return cmd, check(cmd)
}

// Truncate clips s to at most max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func check(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) {
		return err
	}
	for _, fe := range fieldErrors {
		switch fe.Tag() {
		case "max":
			return errors.ErrContentTooLong
		case "required":
			return errors.ErrNotFound
		}
	}
	return errors.ErrEmptyContent
}

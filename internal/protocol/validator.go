package protocol

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Validator checks draw payload bounds and strips HTML from chat text
// before anything is relayed.
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func NewValidator() *Validator {
	return &Validator{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// ValidateDraw rejects draw events with out-of-range coordinates,
// thickness or color strings.
func (v *Validator) ValidateDraw(ev *DrawEvent) error {
	if !ev.Tool.Valid() {
		return fmt.Errorf("%w: missing tool", ErrInvalidMessage)
	}
	if err := v.validate.Struct(ev); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %q out of allowed range", ErrInvalidMessage, fieldErrs[0].Field())
		}
		return fmt.Errorf("draw event validation: %w", err)
	}
	return nil
}

// ValidateChat sanitizes a chat payload and returns the cleaned text.
func (v *Validator) ValidateChat(msg *ChatInbound) (string, error) {
	if err := v.validate.Struct(msg); err != nil {
		return "", fmt.Errorf("%w: chat message too long", ErrInvalidMessage)
	}
	return v.sanitizer.Sanitize(msg.Message), nil
}

package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("assessmentid", func(fl validator.FieldLevel) bool {
		return ValidID(fl.Field().String())
	})
	_ = v.RegisterValidation("font", func(fl validator.FieldLevel) bool {
		return slices.Contains(Fonts, fl.Field().String())
	})
	return v
}

// ValidID reports whether id can be used as a storage key
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Validate checks the struct tags and the per-kind rules of every question
func (a *Assessment) Validate() error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	for i, q := range a.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks the fields that only make sense for some question kinds
func (q Question) Validate() error {
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < MinChoiceOptions || len(q.Options) > MaxChoiceOptions {
			return fmt.Errorf("multiple choice needs %d to %d options, got %d", MinChoiceOptions, MaxChoiceOptions, len(q.Options))
		}
		if q.Lines != 0 {
			return errors.New("answer lines only apply to discursive questions")
		}
	case QuestionTrueFalse:
		if len(q.Options) != 0 {
			return errors.New("true/false questions take no options")
		}
		if q.Lines != 0 {
			return errors.New("answer lines only apply to discursive questions")
		}
	case QuestionDiscursive:
		if len(q.Options) != 0 {
			return errors.New("discursive questions take no options")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

package utils

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// SelfProfileAlias is reserved for the "/users/me" endpoint and can never be a username.
	SelfProfileAlias = "me"

	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxNameLength     = 256
	MaxSlugLength     = 50

	MinScore = 1
	MaxScore = 10
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.@+-]*$`)
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var validate = validator.New()

// ValidateUsername fails on the reserved alias and on any character outside
// [A-Za-z0-9_.@+-]. Blank and length checks are applied separately.
func ValidateUsername(username string) error {
	if username == SelfProfileAlias {
		return fmt.Errorf("%q cannot be used as a username", SelfProfileAlias)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may contain only letters, digits and @/./+/-/_ characters")
	}
	return nil
}

// ValidateRequired fails on an empty value or one longer than max characters.
func ValidateRequired(value string, max int) error {
	if value == "" {
		return errors.New("this field may not be blank")
	}
	return ValidateMaxLength(value, max)
}

func ValidateMaxLength(value string, max int) error {
	if len([]rune(value)) > max {
		return fmt.Errorf("ensure this field has no more than %d characters", max)
	}
	return nil
}

// ValidateYear fails when year lies after the current calendar year.
func ValidateYear(year int) error {
	return validateYearAt(year, time.Now())
}

func validateYearAt(year int, now time.Time) error {
	if year > now.Year() {
		return fmt.Errorf("year cannot be greater than the current year (%d)", now.Year())
	}
	return nil
}

// ValidateScore accepts exactly the scores 1..10.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("score must be between %d and %d", MinScore, MaxScore)
	}
	return nil
}

func ValidateSlug(slug string) error {
	if err := ValidateRequired(slug, MaxSlugLength); err != nil {
		return err
	}
	if !slugRegex.MatchString(slug) {
		return errors.New("enter a valid slug consisting of letters, numbers, underscores or hyphens")
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := ValidateRequired(email, MaxEmailLength); err != nil {
		return err
	}
	if err := validate.Var(email, "email"); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

package registration

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength = 2
	maxNameLength = 50
)

// Indian mobile numbers: ten digits, first digit 6-9.
var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// Submission is the raw registration form as the registrant typed it.
type Submission struct {
	Name           string
	Email          string
	Phone          string
	Gender         string
	FoodPreference string
}

type FieldError struct {
	Field   string
	Message string
}

type ValidationResult struct {
	FieldErrors []FieldError
}

func (v ValidationResult) Valid() bool {
	return len(v.FieldErrors) == 0
}

func (v ValidationResult) ErrorFor(field string) (string, bool) {
	for _, fe := range v.FieldErrors {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// Validate checks a submission without touching any store.
func Validate(sub Submission) ValidationResult {
	var result ValidationResult
	add := func(field, message string) {
		result.FieldErrors = append(result.FieldErrors, FieldError{Field: field, Message: message})
	}

	name := strings.TrimSpace(sub.Name)
	switch nameLen := utf8.RuneCountInString(name); {
	case nameLen == 0:
		add("name", "Name is required")
	case nameLen < minNameLength:
		add("name", "Name must be at least 2 characters")
	case nameLen > maxNameLength:
		add("name", "Name must be less than 50 characters")
	}

	email := strings.TrimSpace(sub.Email)
	if email == "" {
		add("email", "Email is required")
	} else if !isWellFormedEmail(email) {
		add("email", "Invalid email address")
	}

	phone := strings.TrimSpace(sub.Phone)
	if phone == "" {
		add("phone", "Phone number is required")
	} else if !phonePattern.MatchString(phone) {
		add("phone", "Invalid Indian phone number")
	}

	if _, err := ParseGender(sub.Gender); err != nil {
		add("gender", "Please select a gender")
	}

	if _, err := ParseFoodPreference(sub.FoodPreference); err != nil {
		add("foodPreference", "Please select food preference")
	}

	return result
}

func isWellFormedEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}

	at := strings.LastIndex(email, "@")
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	return true
}

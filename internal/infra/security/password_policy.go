package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	minPasswordLength   = 10
	minCharacterClasses = 3
	minZxcvbnScore      = 3
)

// PasswordPolicyError represents a single password policy violation.
type PasswordPolicyError struct {
	Code    string
	Message string
}

// Error implements error for PasswordPolicyError.
func (e *PasswordPolicyError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordPolicy validates candidate passwords for the change and reset flows.
// Contextual inputs (the user's email) feed the strength estimator so
// passwords derived from account data score poorly.
type PasswordPolicy struct{}

// NewPasswordPolicy constructs the service password policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{}
}

// Validate returns the first policy violation, or nil when the password is
// acceptable.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if len([]rune(password)) < minPasswordLength {
		return &PasswordPolicyError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", minPasswordLength),
		}
	}

	if classes := characterClasses(password); classes < minCharacterClasses {
		return &PasswordPolicyError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", minCharacterClasses),
		}
	}

	result := zxcvbn.PasswordStrength(password, userInputs)
	if result.Score < minZxcvbnScore {
		return &PasswordPolicyError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	}

	return nil
}

func characterClasses(password string) int {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			hasSymbol = true
		}
	}

	classes := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if present {
			classes++
		}
	}
	return classes
}

package auth

import (
	"errors"
	"strings"

	"github.com/2beens/portfoliocms/internal/apperr"
)

// Messages shown on the login form. Wrong email and wrong password share one
// message so the form does not reveal which one was wrong.
const (
	MessageFieldsRequired     = "All fields are required."
	MessageInvalidCredentials = "Invalid credentials."
)

var (
	ErrFieldsRequired     = errors.New("email or password empty")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticate checks email and password against the stored credential.
// The returned error is of kind apperr.KindInvalidCredentials and wraps
// ErrFieldsRequired or ErrInvalidCredentials.
func Authenticate(email, password string, cred *AdminCredential) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return apperr.E(apperr.KindInvalidCredentials, "authenticate", ErrFieldsRequired)
	}
	if cred == nil {
		return apperr.E(apperr.KindInvalidCredentials, "authenticate", ErrInvalidCredentials)
	}

	emailOK := subtleEqual(email, strings.ToLower(strings.TrimSpace(cred.Email)))
	// hash is checked even when the email is wrong
	passwordOK := VerifyPassword(cred.PasswordHash, password)
	if !emailOK || !passwordOK {
		return apperr.E(apperr.KindInvalidCredentials, "authenticate", ErrInvalidCredentials)
	}

	return nil
}

// FailureMessage maps an Authenticate error to the text shown to the user.
func FailureMessage(err error) string {
	if errors.Is(err, ErrFieldsRequired) {
		return MessageFieldsRequired
	}
	return MessageInvalidCredentials
}

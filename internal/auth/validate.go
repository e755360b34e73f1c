// ABOUTME: Client-side validation of the registration form.
// ABOUTME: Reports every field problem at once as a field-to-message map.
package auth

import (
	"sort"
	"strings"

	"github.com/2389-research/connect/internal/models"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ValidationErrors maps a form field to its problem.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for k := range v {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, ", ")
}

// ValidateRegistration checks the registration form before it is sent.
func ValidateRegistration(d models.RegisterData) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(d.Username) == "" {
		errs["username"] = "username is required"
	}
	email := strings.TrimSpace(d.Email)
	if email == "" {
		errs["email"] = "email is required"
	} else if !strings.Contains(email, "@") {
		errs["email"] = "email is invalid"
	}
	if strings.TrimSpace(d.FirstName) == "" {
		errs["first_name"] = "first name is required"
	}
	if strings.TrimSpace(d.LastName) == "" {
		errs["last_name"] = "last name is required"
	}
	if len(d.Password) < MinPasswordLength {
		errs["password"] = "password must be at least 8 characters"
	}
	if d.Password != d.PasswordConfirm {
		errs["password_confirm"] = "passwords do not match"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

package sessions

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to parse phone numbers without an
// international prefix.
var DefaultPhoneRegion = "US"

// RegisterInput is the payload accepted by Facade.Register.
type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Password  string `json:"password"`
}

// Validate will validate the payload
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// CredentialUpdate carries the fields merged by Manager.UpdateCredentials.
// Empty fields are left unchanged.
type CredentialUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone_number,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Validate will validate the payload
func (u CredentialUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Length(6, 100), is.Email),
		validation.Field(&u.FirstName, validation.Length(1, 200)),
		validation.Field(&u.LastName, validation.Length(1, 200)),
		validation.Field(&u.Password, validation.Length(8, 100)),
	)
}

// IsEmpty reports whether the update changes nothing.
func (u CredentialUpdate) IsEmpty() bool {
	return u == CredentialUpdate{}
}

// NormalizePhone parses and canonicalizes a phone number to E.164.
func NormalizePhone(phone string) (string, error) {
	num, err := phonenumbers.Parse(phone, DefaultPhoneRegion)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid phone number").
			WithMetadata(map[string]any{"phone": phone})
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number", errors.CategoryValidation).
			WithMetadata(map[string]any{"phone": phone})
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

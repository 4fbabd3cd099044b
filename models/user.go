package models

import (
	"errors"
	"fmt"
	"strings"

	goval "github.com/go-passwd/validator"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"
)

// Sentinel name fields written on account deletion. The profile document is
// kept so historical messages still resolve an author.
const (
	DeletedFirstName = "Deleted"
	DeletedSurname   = "User"
)

// DefaultProfilePic is shown while a profile has not loaded or has no picture.
const DefaultProfilePic = "https://via.placeholder.com/50"

// UserProfile mirrors one document of the users collection. The document id is
// the identity provider's uid.
type UserProfile struct {
	UID           string `firestore:"-" json:"uid"`
	FirstName     string `firestore:"firstName" json:"first_name"`
	Surname       string `firestore:"surname" json:"surname"`
	ProfilePicURL string `firestore:"profilePicUrl" json:"profile_pic_url"`
	Deactivated   bool   `firestore:"deactivated" json:"deactivated"`
}

// DisplayName renders "First Surname", the form frozen onto messages at send
// time.
func (u *UserProfile) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}

// Placeholder resolves an author whose profile has not loaded yet. Message and
// profile loads are independent fetches, so rendering must never wait on this.
func Placeholder(uid string) UserProfile {
	return UserProfile{UID: uid, ProfilePicURL: DefaultProfilePic}
}

type SignupRequest struct {
	FirstName string `json:"first_name" conform:"trim" binding:"required,min=2"`
	Surname   string `json:"surname" conform:"trim" binding:"required,min=2"`
	Email     string `json:"email" conform:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" conform:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" conform:"email" binding:"required,email"`
}

// UpdateCredentialsRequest changes email and/or password. CurrentPassword is
// the fresh proof demanded immediately before any credential change.
type UpdateCredentialsRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewEmail        string `json:"new_email,omitempty" binding:"omitempty,email"`
	NewPassword     string `json:"new_password,omitempty"`
}

// DeleteAccountRequest carries the fresh password proof for deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

type EditProfileRequest struct {
	FirstName string `json:"first_name" conform:"trim" binding:"omitempty,min=2"`
	Surname   string `json:"surname" conform:"trim" binding:"omitempty,min=2"`
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(15, errors.New("password cant be more than 15 characters")))
	err := passwordValidator.Validate(password)
	return err
}

// ValidateWhiteSpaces applies the conform tags (trim, email normalization) to a
// request struct in place.
func ValidateWhiteSpaces(data interface{}) error {
	return conform.Strings(data)
}

// TranslateError flattens validator errors into readable per-field messages.
func TranslateError(err error) (errs []error) {
	if err == nil {
		return nil
	}
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans) + "; ")
		errs = append(errs, translatedErr)
	}
	return errs
}

// Package validate runs the quick form checks done before a request is
// sent. The backend validates again; these only save a round trip.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"hostel-portal/internal/models"

	"github.com/go-playground/validator/v10"
)

// MaxImageDataURL is the longest data: URL accepted as a profile image.
const MaxImageDataURL = 50000

// Messages shown inline next to the forms.
var (
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters")
	ErrImageTooLarge    = fmt.Errorf("Profile image is too large (max %d characters)", MaxImageDataURL)
	ErrImageProtocol    = errors.New("Profile image URL must start with http://, https:// or data:image/")
)

var v = validator.New(validator.WithRequiredStructEnabled())

var fieldNames = map[string]string{
	"FullName":          "Full name",
	"Email":             "Email",
	"Phone":             "Phone",
	"Gender":            "Gender",
	"Password":          "Password",
	"Name":              "Name",
	"Location":          "Location",
	"HostelID":          "Hostel",
	"RoomNumber":        "Room number",
	"Capacity":          "Capacity",
	"RoomGender":        "Room gender",
	"MattressType":      "Mattress type",
	"FloorNumber":       "Floor number",
	"PreferredCapacity": "Preferred capacity",
	"SpecialRequests":   "Special requests",
}

// Registration checks the sign-up form, including the confirmation field
// that never leaves the browser.
func Registration(req models.RegisterRequest, confirm string) error {
	if req.Password != confirm {
		return ErrPasswordMismatch
	}
	if len(req.Password) < 6 {
		return ErrPasswordTooShort
	}
	return Struct(req)
}

// Profile checks the profile form.
func Profile(req models.UpdateProfileRequest) error {
	if err := Struct(req); err != nil {
		return err
	}
	return ProfileImageURL(req.ProfileImageURL)
}

// ProfileImageURL accepts an empty value, http(s) URLs and data:image
// URLs up to MaxImageDataURL characters.
func ProfileImageURL(raw string) error {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
		return nil
	case strings.HasPrefix(lower, "data:image/"):
		if len(raw) > MaxImageDataURL {
			return ErrImageTooLarge
		}
		return nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return nil
	default:
		return ErrImageProtocol
	}
}

// Hostel checks the hostel form.
func Hostel(req models.UpsertHostelRequest) error { return Struct(req) }

// Room checks the room form. Price must not be negative.
func Room(req models.CreateRoomRequest) error {
	if err := Struct(req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return errors.New("Price cannot be negative")
	}
	return nil
}

// Preferences checks the application form.
func Preferences(p models.Preferences) error { return Struct(p) }

// Struct runs the validate tags of s and turns the first failure into a
// sentence.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return errors.New(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	name, ok := fieldNames[fe.StructField()]
	if !ok {
		name = fe.StructField()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Enter a valid email address"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "gt":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return name + " is invalid"
	}
}

package validate

import (
	"strings"
	"testing"

	"hostel-portal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() models.RegisterRequest {
	return models.RegisterRequest{
		FullName: "Ada Lovelace",
		Email:    "ada@uni.edu",
		Phone:    "+44 20 7946 0000",
		Gender:   models.GenderFemale,
		Password: "secret1",
	}
}

func TestRegistration(t *testing.T) {
	req := validRegistration()
	assert.NoError(t, Registration(req, "secret1"))

	assert.ErrorIs(t, Registration(req, "different"), ErrPasswordMismatch)

	req.Password = "abc"
	assert.ErrorIs(t, Registration(req, "abc"), ErrPasswordTooShort)

	req = validRegistration()
	req.Email = "not-an-email"
	assert.EqualError(t, Registration(req, req.Password), "Enter a valid email address")

	req = validRegistration()
	req.FullName = ""
	assert.EqualError(t, Registration(req, req.Password), "Full name is required")

	req = validRegistration()
	req.Gender = "OTHER"
	assert.EqualError(t, Registration(req, req.Password), "Gender must be one of MALE, FEMALE")
}

func TestProfileImageURL(t *testing.T) {
	assert.NoError(t, ProfileImageURL(""))
	assert.NoError(t, ProfileImageURL("https://cdn.uni.edu/ada.png"))
	assert.NoError(t, ProfileImageURL("http://cdn.uni.edu/ada.png"))
	assert.NoError(t, ProfileImageURL("data:image/png;base64,AAAA"))

	big := "data:image/png;base64," + strings.Repeat("A", MaxImageDataURL)
	assert.ErrorIs(t, ProfileImageURL(big), ErrImageTooLarge)
	assert.ErrorIs(t, ProfileImageURL("ftp://files.uni.edu/ada.png"), ErrImageProtocol)
	assert.ErrorIs(t, ProfileImageURL("javascript:alert(1)"), ErrImageProtocol)
}

func TestProfile(t *testing.T) {
	assert.NoError(t, Profile(models.UpdateProfileRequest{FullName: "Ada"}))
	assert.EqualError(t, Profile(models.UpdateProfileRequest{}), "Full name is required")
	assert.ErrorIs(t, Profile(models.UpdateProfileRequest{FullName: "Ada", ProfileImageURL: "ftp://x"}), ErrImageProtocol)
}

func TestRoom(t *testing.T) {
	req := models.NewRoomDefaults([]models.Hostel{{ID: 1}})
	req.RoomNumber = "101"
	req.Price = decimal.RequireFromString("250.00")
	require.NoError(t, Room(req))

	bad := req
	bad.Capacity = 11
	assert.EqualError(t, Room(bad), "Capacity must be at most 10")

	bad = req
	bad.HostelID = 0
	assert.EqualError(t, Room(bad), "Hostel is required")

	bad = req
	bad.Price = decimal.NewFromInt(-1)
	assert.EqualError(t, Room(bad), "Price cannot be negative")
}

func TestPreferences(t *testing.T) {
	p := models.Preferences{HostelID: 1, PreferredCapacity: 2, MattressType: models.MattressNormal}
	assert.NoError(t, Preferences(p))

	p.SpecialRequests = strings.Repeat("x", 501)
	assert.EqualError(t, Preferences(p), "Special requests must be at most 500 characters")
}

func TestHostel(t *testing.T) {
	assert.NoError(t, Hostel(models.UpsertHostelRequest{Name: "North"}))
	assert.EqualError(t, Hostel(models.UpsertHostelRequest{}), "Name is required")
}

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHome(t *testing.T) {
	assert.Equal(t, "/admin", RoleAdmin.Home())
	assert.Equal(t, "/student", RoleStudent.Home())
	assert.Equal(t, "/student", Role("").Home())
}

func TestBookingStatusPresentation(t *testing.T) {
	assert.Equal(t, "PENDING PAYMENT", StatusPendingPayment.Label())
	assert.Equal(t, "UNKNOWN", BookingStatus("").Label())
	assert.Equal(t, "badge-success", StatusApproved.BadgeClass())
	assert.Equal(t, "badge-neutral", BookingStatus("ON_HOLD").BadgeClass())
	assert.False(t, StatusPendingPayment.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, BookingStatus("ON_HOLD").Known())
}

func TestBookingDecodesBackendPayload(t *testing.T) {
	payload := `{
		"id": 42,
		"status": "PENDING_PAYMENT",
		"createdAt": "2024-03-01T10:15:30.123",
		"studentId": 7,
		"studentName": "Ada Lovelace",
		"paymentAmount": 1500.50,
		"paymentDueAt": "2024-03-01T10:45:30Z"
	}`

	var b Booking
	require.NoError(t, json.Unmarshal([]byte(payload), &b))

	assert.Equal(t, int64(42), b.ID)
	require.NotNil(t, b.StudentID)
	assert.Equal(t, int64(7), *b.StudentID)
	assert.True(t, b.PaymentAmount.Valid)
	assert.Equal(t, "1500.5", b.PaymentAmount.Decimal.String())
	require.NotNil(t, b.CreatedAt)
	assert.Equal(t, time.March, b.CreatedAt.Month())
	assert.True(t, b.HasPayment())
}

func TestBookingWithoutPayment(t *testing.T) {
	var b Booking
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":"APPROVED","paymentAmount":null}`), &b))
	assert.False(t, b.HasPayment())
	assert.Equal(t, "-", b.PaymentDueAt.Display("2006-01-02"))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AL", StudentProfile{FullName: "ada  king lovelace"}.Initials())
	assert.Equal(t, "G", StudentProfile{FullName: "grace"}.Initials())
	assert.Equal(t, "?", StudentProfile{}.Initials())
}

func TestApplyResultSucceeded(t *testing.T) {
	assert.True(t, ApplyResult{Status: StatusPendingPayment}.Succeeded())
	assert.False(t, ApplyResult{Status: StatusRejected}.Succeeded())
}

func TestNewRoomDefaults(t *testing.T) {
	req := NewRoomDefaults([]Hostel{{ID: 3, Name: "North"}})
	assert.Equal(t, int64(3), req.HostelID)
	assert.Equal(t, 2, req.Capacity)
	assert.Equal(t, GenderMale, req.RoomGender)
	assert.True(t, req.HasWifi)
	assert.False(t, req.HasAC)
	assert.Equal(t, MattressNormal, req.MattressType)
}

package models

import "github.com/shopspring/decimal"

// Hostel is a building that contains rooms.
type Hostel struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location,omitempty"`
	Active     bool   `json:"active"`
	TotalRooms *int   `json:"totalRooms,omitempty"`
}

// UpsertHostelRequest creates or replaces a hostel.
type UpsertHostelRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"max=200"`
	Active   bool   `json:"active"`
}

// RoomStatus is derived by the backend from occupancy and capacity.
type RoomStatus string

const (
	RoomAvailable RoomStatus = "AVAILABLE"
	RoomFull      RoomStatus = "FULL"
)

// MattressType is a room amenity and an application preference.
type MattressType string

const (
	MattressNormal MattressType = "NORMAL"
	MattressQueen  MattressType = "QUEEN"
)

// MattressTypes lists the selectable mattress types.
var MattressTypes = []MattressType{MattressNormal, MattressQueen}

// Room is an allocatable unit within a hostel.
type Room struct {
	ID               int64           `json:"id"`
	HostelID         int64           `json:"hostelId"`
	HostelName       string          `json:"hostelName"`
	RoomNumber       string          `json:"roomNumber"`
	Capacity         int             `json:"capacity"`
	CurrentOccupancy int             `json:"currentOccupancy"`
	RoomGender       Gender          `json:"roomGender"`
	MattressType     MattressType    `json:"mattressType"`
	HasAC            bool            `json:"hasAc"`
	HasWifi          bool            `json:"hasWifi"`
	Status           RoomStatus      `json:"status"`
	Price            decimal.Decimal `json:"price"`
	FloorNumber      int             `json:"floorNumber"`
}

// CreateRoomRequest is sent to POST /api/admin/rooms.
type CreateRoomRequest struct {
	HostelID     int64           `json:"hostelId" validate:"required,gt=0"`
	RoomNumber   string          `json:"roomNumber" validate:"required,max=20"`
	Capacity     int             `json:"capacity" validate:"min=1,max=10"`
	RoomGender   Gender          `json:"roomGender" validate:"required,oneof=MALE FEMALE"`
	HasAC        bool            `json:"hasAc"`
	HasWifi      bool            `json:"hasWifi"`
	MattressType MattressType    `json:"mattressType" validate:"required,oneof=NORMAL QUEEN"`
	Price        decimal.Decimal `json:"price"`
	FloorNumber  int             `json:"floorNumber" validate:"min=1"`
}

// NewRoomDefaults returns the values the room form starts with.
func NewRoomDefaults(hostels []Hostel) CreateRoomRequest {
	req := CreateRoomRequest{
		Capacity:     2,
		RoomGender:   GenderMale,
		HasWifi:      true,
		MattressType: MattressNormal,
		FloorNumber:  1,
		Price:        decimal.Zero,
	}
	if len(hostels) > 0 {
		req.HostelID = hostels[0].ID
	}
	return req
}

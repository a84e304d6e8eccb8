// Package reports derives admin views from already fetched collections.
// Every function is pure: the same input always yields the same output.
package reports

import (
	"math"
	"time"

	"hostel-portal/internal/models"
)

// UnknownHostel groups rooms without a hostel name.
const UnknownHostel = "Unknown"

// HostelOccupancy is one row of the occupancy table.
type HostelOccupancy struct {
	Hostel    string
	Capacity  int
	Occupancy int
	Rate      int
}

// StatusCount is one row of the status distribution.
type StatusCount struct {
	Status models.BookingStatus
	Count  int
}

// Metrics are the summary cards.
type Metrics struct {
	TotalHostels   int
	TotalRooms     int
	TotalBookings  int
	TotalCapacity  int
	TotalOccupancy int
	OccupancyRate  int
}

// Report is everything the reports page and its exports show.
type Report struct {
	GeneratedAt time.Time
	Metrics     Metrics
	Occupancy   []HostelOccupancy
	Statuses    []StatusCount
	Bookings    []models.Booking
}

// OccupancyRate is occupancy/capacity as a rounded percentage, or 0 when
// there is no capacity.
func OccupancyRate(occupancy, capacity int) int {
	if capacity == 0 {
		return 0
	}
	return int(math.Round(float64(occupancy) / float64(capacity) * 100))
}

// OccupancyByHostel sums capacity and occupancy per hostel name, in the
// order hostels are first seen.
func OccupancyByHostel(rooms []models.Room) []HostelOccupancy {
	index := make(map[string]int)
	var out []HostelOccupancy
	for _, r := range rooms {
		name := r.HostelName
		if name == "" {
			name = UnknownHostel
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, HostelOccupancy{Hostel: name})
		}
		out[i].Capacity += r.Capacity
		out[i].Occupancy += r.CurrentOccupancy
	}
	for i := range out {
		out[i].Rate = OccupancyRate(out[i].Occupancy, out[i].Capacity)
	}
	return out
}

// StatusDistribution counts bookings per status in first-seen order. A
// missing status is counted as UNKNOWN; unrecognised values keep their
// own bucket.
func StatusDistribution(bookings []models.Booking) []StatusCount {
	index := make(map[models.BookingStatus]int)
	var out []StatusCount
	for _, b := range bookings {
		status := b.Status
		if status == "" {
			status = models.StatusUnknown
		}
		i, ok := index[status]
		if !ok {
			i = len(out)
			index[status] = i
			out = append(out, StatusCount{Status: status})
		}
		out[i].Count++
	}
	return out
}

// Summarize computes the summary cards.
func Summarize(hostels []models.Hostel, rooms []models.Room, bookings []models.Booking) Metrics {
	m := Metrics{
		TotalHostels:  len(hostels),
		TotalRooms:    len(rooms),
		TotalBookings: len(bookings),
	}
	for _, r := range rooms {
		m.TotalCapacity += r.Capacity
		m.TotalOccupancy += r.CurrentOccupancy
	}
	m.OccupancyRate = OccupancyRate(m.TotalOccupancy, m.TotalCapacity)
	return m
}

// Build assembles a full report.
func Build(hostels []models.Hostel, rooms []models.Room, bookings []models.Booking, now time.Time) Report {
	return Report{
		GeneratedAt: now,
		Metrics:     Summarize(hostels, rooms, bookings),
		Occupancy:   OccupancyByHostel(rooms),
		Statuses:    StatusDistribution(bookings),
		Bookings:    bookings,
	}
}

// DashboardStats are the admin landing page counters.
type DashboardStats struct {
	Hostels         int
	ActiveHostels   int
	Rooms           int
	AvailableRooms  int
	Bookings        int
	PendingPayments int
}

// Dashboard counts the admin landing page figures.
func Dashboard(hostels []models.Hostel, rooms []models.Room, bookings []models.Booking) DashboardStats {
	s := DashboardStats{Hostels: len(hostels), Rooms: len(rooms), Bookings: len(bookings)}
	for _, h := range hostels {
		if h.Active {
			s.ActiveHostels++
		}
	}
	for _, r := range rooms {
		if r.Status == models.RoomAvailable {
			s.AvailableRooms++
		}
	}
	for _, b := range bookings {
		if b.Status == models.StatusPendingPayment {
			s.PendingPayments++
		}
	}
	return s
}

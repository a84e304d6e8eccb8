// Package export renders a report as CSV or as a printable HTML page.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"hostel-portal/internal/reports"
)

// Title heads both export formats.
const Title = "Hostel Management System Report"

// Filename returns the CSV download name for the given day.
func Filename(now time.Time) string {
	return "hostel-report-" + now.Format("2006-01-02") + ".csv"
}

// WriteCSV writes the report sections separated by blank rows. Fields that
// contain commas, quotes or line breaks are quoted with quotes doubled.
func WriteCSV(w io.Writer, r reports.Report) error {
	cw := csv.NewWriter(w)
	m := r.Metrics

	rows := [][]string{
		{Title},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{},
		{"Summary Metrics"},
		{"Total Hostels", strconv.Itoa(m.TotalHostels)},
		{"Total Rooms", strconv.Itoa(m.TotalRooms)},
		{"Total Bookings", strconv.Itoa(m.TotalBookings)},
		{"Occupancy Rate", fmt.Sprintf("%d%%", m.OccupancyRate)},
		{},
		{"Occupancy by Hostel"},
		{"Hostel", "Capacity", "Occupancy", "Rate"},
	}
	for _, o := range r.Occupancy {
		rows = append(rows, []string{o.Hostel, strconv.Itoa(o.Capacity), strconv.Itoa(o.Occupancy), fmt.Sprintf("%d%%", o.Rate)})
	}

	rows = append(rows, []string{}, []string{"Booking Status Distribution"}, []string{"Status", "Count"})
	for _, s := range r.Statuses {
		rows = append(rows, []string{strings.ReplaceAll(string(s.Status), "_", " "), strconv.Itoa(s.Count)})
	}

	rows = append(rows, []string{}, []string{"Bookings Detail"},
		[]string{"ID", "Student", "Email", "Hostel", "Room", "Status", "Payment Status"})
	for _, b := range r.Bookings {
		rows = append(rows, []string{
			strconv.FormatInt(b.ID, 10),
			b.StudentName,
			b.StudentEmail,
			b.HostelName,
			b.RoomNumber,
			string(b.Status),
			b.PaymentStatus,
		})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"hostel-portal/internal/models"
	"hostel-portal/internal/reports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(bookings []models.Booking) reports.Report {
	rooms := []models.Room{
		{HostelName: `Hall "A", North`, Capacity: 4, CurrentOccupancy: 2},
		{HostelName: "South", Capacity: 2, CurrentOccupancy: 2},
	}
	return reports.Build([]models.Hostel{{ID: 1}, {ID: 2}}, rooms, bookings, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hostel-report-2024-05-01.csv", Filename(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)))
}

func TestWriteCSV_RoundTripsSpecialCharacters(t *testing.T) {
	tricky := "Line one\nLine \"two\", with comma"
	r := sampleReport([]models.Booking{
		{ID: 42, StudentName: tricky, StudentEmail: "ada@uni.edu", HostelName: "North", RoomNumber: "101",
			Status: models.StatusPendingPayment, PaymentStatus: "PENDING"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	// Blank separator rows are skipped by the reader.
	assert.Equal(t, []string{Title}, records[0])
	assert.Contains(t, records, []string{"Occupancy Rate", "67%"})
	assert.Contains(t, records, []string{"Total Hostels", "2"})

	var found []string
	for _, rec := range records {
		if len(rec) == 7 && rec[0] == "42" {
			found = rec
		}
		if len(rec) == 4 && strings.HasPrefix(rec[0], "Hall") {
			assert.Equal(t, `Hall "A", North`, rec[0])
		}
		if len(rec) == 2 && rec[0] == "PENDING PAYMENT" {
			assert.Equal(t, "1", rec[1])
		}
	}
	require.NotNil(t, found, "booking row present")
	assert.Equal(t, tricky, found[1])
	assert.Equal(t, "PENDING_PAYMENT", found[5])
}

func TestWriteHTML_EscapesValues(t *testing.T) {
	r := sampleReport([]models.Booking{
		{ID: 1, StudentName: `<script>alert('x')</script> & "friends"`, Status: models.StatusApproved},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, r, true))
	out := buf.String()

	assert.NotContains(t, out, "<script>alert")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&amp;")
	assert.Contains(t, out, "&#34;friends&#34;")
	assert.Contains(t, out, "&#39;x&#39;")
	assert.Contains(t, out, "Hall &#34;A&#34;, North")
	assert.Contains(t, out, "window.print()")
	assert.NotContains(t, out, "Showing")
}

func TestWriteHTML_TruncatesBookings(t *testing.T) {
	var bookings []models.Booking
	for i := 1; i <= 60; i++ {
		bookings = append(bookings, models.Booking{ID: int64(i), Status: models.StatusApproved})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport(bookings), false))
	out := buf.String()

	assert.Contains(t, out, "Showing 50 of 60 bookings")
	assert.Contains(t, out, "<td>50</td>")
	assert.NotContains(t, out, "<td>51</td>")
	assert.NotContains(t, out, "window.print()")
	assert.Equal(t, 1, strings.Count(out, fmt.Sprintf("<td>%d</td>", 1)))
}

func TestWriteHTML_EmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, reports.Build(nil, nil, nil, time.Now()), false))
	assert.Contains(t, buf.String(), "No bookings")
	assert.Contains(t, buf.String(), "No data")
}

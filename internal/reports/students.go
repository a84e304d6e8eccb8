package reports

import (
	"strings"

	"hostel-portal/internal/models"
)

// StudentSummary rolls up every booking of one student.
type StudentSummary struct {
	StudentID    int64
	Name         string
	Email        string
	Total        int
	Approved     int
	Pending      int
	LatestHostel string
	LatestRoom   string

	latest *models.Timestamp
}

// StudentRollup groups bookings by student id in first-seen order.
// Bookings without a student id are skipped.
//
// The latest hostel and room come from the booking with the newest
// createdAt. When either booking being compared lacks createdAt the later
// one in the input wins, so callers must pass bookings in chronological
// order if the backend omits timestamps. Empty values never overwrite a
// known hostel or room.
func StudentRollup(bookings []models.Booking) []StudentSummary {
	index := make(map[int64]int)
	var out []StudentSummary
	for _, b := range bookings {
		if b.StudentID == nil {
			continue
		}
		id := *b.StudentID
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, StudentSummary{
				StudentID:    id,
				Name:         b.StudentName,
				Email:        b.StudentEmail,
				LatestHostel: "-",
				LatestRoom:   "-",
			})
		}
		s := &out[i]
		s.Total++
		switch b.Status {
		case models.StatusApproved:
			s.Approved++
		case models.StatusPendingPayment:
			s.Pending++
		}
		if s.Name == "" {
			s.Name = b.StudentName
		}
		if s.Email == "" {
			s.Email = b.StudentEmail
		}
		if newer(b.CreatedAt, s.latest) {
			if b.HostelName != "" {
				s.LatestHostel = b.HostelName
			}
			if b.RoomNumber != "" {
				s.LatestRoom = b.RoomNumber
			}
			if b.CreatedAt != nil {
				s.latest = b.CreatedAt
			}
		}
	}
	return out
}

func newer(candidate, current *models.Timestamp) bool {
	if candidate == nil || current == nil {
		return true
	}
	return !candidate.Before(current.Time)
}

// FilterStudents keeps summaries whose name or email contains q, ignoring
// case. An empty query keeps everything.
func FilterStudents(list []StudentSummary, q string) []StudentSummary {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	var out []StudentSummary
	for _, s := range list {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Email), q) {
			out = append(out, s)
		}
	}
	return out
}

// FilterHostels keeps hostels whose name or location contains q.
func FilterHostels(list []models.Hostel, q string) []models.Hostel {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return list
	}
	var out []models.Hostel
	for _, h := range list {
		if strings.Contains(strings.ToLower(h.Name), q) || strings.Contains(strings.ToLower(h.Location), q) {
			out = append(out, h)
		}
	}
	return out
}

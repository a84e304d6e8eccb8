// Package testbackend is an in-memory stand-in for the hostel REST API.
// Tests and the e2e suite run the portal against it.
package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hostel-portal/internal/models"
)

// Call is one request received by the backend.
type Call struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

type account struct {
	password string
	role     models.Role
	profile  models.StudentProfile
}

// Backend holds hostels, rooms, bookings and accounts in memory.
type Backend struct {
	// StatusMethod is the method the booking status endpoint accepts.
	StatusMethod string
	// PaymentWindow is added to the apply time to get the payment due date.
	PaymentWindow time.Duration

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	hostels  []models.Hostel
	rooms    []models.Room
	bookings []models.Booking
	nextID   int64
	calls    []Call
	failures map[string]int
	now      func() time.Time
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		StatusMethod:  http.MethodPatch,
		PaymentWindow: 48 * time.Hour,
		accounts:      make(map[string]*account),
		tokens:        make(map[string]string),
		failures:      make(map[string]int),
		now:           time.Now,
	}
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// AddAccount registers a user. The profile is only used for students.
func (b *Backend) AddAccount(email, password string, role models.Role, profile models.StudentProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	profile.ID = b.id()
	profile.Email = email
	b.accounts[email] = &account{password: password, role: role, profile: profile}
}

// AddHostel stores h and returns it with its id.
func (b *Backend) AddHostel(h models.Hostel) models.Hostel {
	b.mu.Lock()
	defer b.mu.Unlock()
	h.ID = b.id()
	b.hostels = append(b.hostels, h)
	return h
}

// AddRoom stores r under its hostel and returns it with its id.
func (b *Backend) AddRoom(r models.Room) models.Room {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.ID = b.id()
	if h := b.hostel(r.HostelID); h != nil {
		r.HostelName = h.Name
	}
	r.Status = roomStatus(r)
	b.rooms = append(b.rooms, r)
	return r
}

// AddBooking stores bk as is and returns it with its id.
func (b *Backend) AddBooking(bk models.Booking) models.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk.ID = b.id()
	b.bookings = append(b.bookings, bk)
	return bk
}

// Booking returns a stored booking.
func (b *Backend) Booking(id int64) (models.Booking, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bk := range b.bookings {
		if bk.ID == id {
			return bk, true
		}
	}
	return models.Booking{}, false
}

// Calls returns every request received so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the requests received for method and path.
func (b *Backend) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// FailNext makes the next n requests to "METHOD /path" answer 500.
func (b *Backend) FailNext(route string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = n
}

// RevokeTokens invalidates every token issued to email, as if they had
// expired.
func (b *Backend) RevokeTokens(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, owner := range b.tokens {
		if owner == email {
			delete(b.tokens, token)
		}
	}
}

// Seed loads a small demo data set: an admin, a student, two open hostels
// and a closed one, three rooms and a booking awaiting payment.
func (b *Backend) Seed() {
	b.AddAccount("admin@uni.edu", "admin123", models.RoleAdmin, models.StudentProfile{})
	b.AddAccount("student@uni.edu", "student123", models.RoleStudent, models.StudentProfile{
		FullName: "Amina Okafor", Phone: "0800000001", Gender: models.GenderFemale,
	})
	north := b.AddHostel(models.Hostel{Name: "North Hall", Location: "Main campus", Active: true})
	south := b.AddHostel(models.Hostel{Name: "South Hall", Location: "East gate", Active: true})
	b.AddHostel(models.Hostel{Name: "Annex", Location: "Old campus", Active: false})

	b.AddRoom(models.Room{HostelID: north.ID, RoomNumber: "N101", Capacity: 2, RoomGender: models.GenderFemale,
		HasWifi: true, MattressType: models.MattressNormal, FloorNumber: 1, Price: decimal.NewFromInt(1200)})
	b.AddRoom(models.Room{HostelID: north.ID, RoomNumber: "N102", Capacity: 4, CurrentOccupancy: 4, RoomGender: models.GenderMale,
		HasAC: true, HasWifi: true, MattressType: models.MattressQueen, FloorNumber: 1, Price: decimal.NewFromInt(900)})
	b.AddRoom(models.Room{HostelID: south.ID, RoomNumber: "S201", Capacity: 2, CurrentOccupancy: 1, RoomGender: models.GenderMale,
		HasWifi: true, MattressType: models.MattressNormal, FloorNumber: 2, Price: decimal.NewFromInt(1000)})

	sid := int64(9001)
	created := &models.Timestamp{Time: b.now().Add(-24 * time.Hour).Truncate(time.Second)}
	due := &models.Timestamp{Time: b.now().Add(24 * time.Hour).Truncate(time.Second)}
	b.AddBooking(models.Booking{
		Status: models.StatusPendingPayment, CreatedAt: created, StudentID: &sid,
		StudentName: "Tunde Bello", StudentEmail: "tunde@uni.edu", HostelName: "South Hall", RoomNumber: "S201",
		PaymentStatus: "PENDING", PaymentAmount: decimal.NewNullDecimal(decimal.NewFromInt(1000)), PaymentDueAt: due,
	})
}

// Handler routes the REST API.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/api/auth/login", b.login)
	r.Post("/api/auth/register", b.register)

	r.Group(func(r chi.Router) {
		r.Use(b.requireRole(models.RoleStudent))
		r.Get("/api/student/profile", b.profile)
		r.Put("/api/student/profile", b.updateProfile)
		r.Post("/api/student/apply", b.apply)
		r.Get("/api/student/booking", b.myBooking)
	})

	r.Group(func(r chi.Router) {
		r.Use(b.requireRole(models.RoleAdmin))
		r.Get("/api/admin/hostels", b.listHostels)
		r.Post("/api/admin/hostels", b.createHostel)
		r.Put("/api/admin/hostels/{id}", b.updateHostel)
		r.Get("/api/admin/rooms", b.listRooms)
		r.Post("/api/admin/rooms", b.createRoom)
		r.Get("/api/admin/bookings", b.listBookings)
		r.MethodFunc(http.MethodPatch, "/api/admin/bookings/{id}/status", b.updateStatus)
		r.MethodFunc(http.MethodPut, "/api/admin/bookings/{id}/status", b.updateStatus)
	})
	return r
}

type principalKey struct{}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: string(body)})
		route := r.Method + " " + r.URL.Path
		fail := b.failures[route] > 0
		if fail {
			b.failures[route]--
		}
		b.mu.Unlock()

		if fail {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			b.mu.Lock()
			email, known := b.tokens[token]
			acc := b.accounts[email]
			b.mu.Unlock()
			switch {
			case !ok || !known || acc == nil:
				writeError(w, http.StatusUnauthorized, "Unauthorized")
			case acc.role != role:
				writeError(w, http.StatusForbidden, "Access denied")
			default:
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, email)))
			}
		})
	}
}

func principal(r *http.Request) string {
	email, _ := r.Context().Value(principalKey{}).(string)
	return email
}

func (b *Backend) issue(email string) string {
	token := fmt.Sprintf("token-%d-%s", b.id(), strings.ReplaceAll(email, "@", "."))
	b.tokens[token] = email
	return token
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: b.issue(req.Email), Role: acc.role})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		writeError(w, http.StatusConflict, "Email is already registered")
		return
	}
	b.accounts[req.Email] = &account{
		password: req.Password,
		role:     models.RoleStudent,
		profile: models.StudentProfile{
			ID: b.id(), FullName: req.FullName, Email: req.Email, Phone: req.Phone, Gender: req.Gender,
		},
	}
	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: b.issue(req.Email), Role: models.RoleStudent})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.accounts[principal(r)].profile)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accounts[principal(r)]
	acc.profile.FullName = req.FullName
	acc.profile.Phone = req.Phone
	acc.profile.ProfileImageURL = req.ProfileImageURL
	writeJSON(w, http.StatusOK, acc.profile)
}

// apply allocates the first available room of the hostel that matches the
// student's gender, capacity and amenities.
func (b *Backend) apply(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := b.accounts[principal(r)]
	if cur := b.bookingOf(acc.profile.ID); cur != nil && (cur.Status == models.StatusPendingPayment || cur.Status == models.StatusApproved) {
		writeError(w, http.StatusConflict, "You already have an active booking")
		return
	}

	sid := acc.profile.ID
	now := b.now().Truncate(time.Second)
	bk := models.Booking{
		ID:              b.id(),
		CreatedAt:       &models.Timestamp{Time: now},
		SpecialRequests: prefs.SpecialRequests,
		StudentID:       &sid,
		StudentName:     acc.profile.FullName,
		StudentEmail:    acc.profile.Email,
		Status:          models.StatusRejected,
	}

	for i := range b.rooms {
		room := &b.rooms[i]
		if room.HostelID != prefs.HostelID || room.Status != models.RoomAvailable || room.RoomGender != acc.profile.Gender {
			continue
		}
		if room.Capacity != prefs.PreferredCapacity || (prefs.HasAC && !room.HasAC) || (prefs.HasWifi && !room.HasWifi) || room.MattressType != prefs.MattressType {
			continue
		}
		room.CurrentOccupancy++
		room.Status = roomStatus(*room)
		bk.Status = models.StatusPendingPayment
		bk.HostelName = room.HostelName
		bk.RoomNumber = room.RoomNumber
		bk.PaymentStatus = "PENDING"
		bk.PaymentAmount = decimal.NewNullDecimal(room.Price)
		bk.PaymentDueAt = &models.Timestamp{Time: now.Add(b.PaymentWindow)}
		break
	}
	b.bookings = append(b.bookings, bk)

	writeJSON(w, http.StatusOK, models.ApplyResult{
		ID: bk.ID, Status: bk.Status, HostelName: bk.HostelName, RoomNumber: bk.RoomNumber, PaymentDueAt: bk.PaymentDueAt,
	})
}

func (b *Backend) myBooking(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk := b.bookingOf(b.accounts[principal(r)].profile.ID)
	if bk == nil {
		writeError(w, http.StatusNotFound, "No booking found")
		return
	}
	writeJSON(w, http.StatusOK, bk)
}

// bookingOf returns the student's latest booking.
func (b *Backend) bookingOf(studentID int64) *models.Booking {
	for i := len(b.bookings) - 1; i >= 0; i-- {
		if sid := b.bookings[i].StudentID; sid != nil && *sid == studentID {
			return &b.bookings[i]
		}
	}
	return nil
}

func (b *Backend) listHostels(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Hostel, len(b.hostels))
	for i, h := range b.hostels {
		n := 0
		for _, room := range b.rooms {
			if room.HostelID == h.ID {
				n++
			}
		}
		h.TotalRooms = &n
		out[i] = h
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createHostel(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertHostelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Hostel name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := models.Hostel{ID: b.id(), Name: req.Name, Location: req.Location, Active: req.Active}
	b.hostels = append(b.hostels, h)
	writeJSON(w, http.StatusCreated, h)
}

func (b *Backend) updateHostel(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req models.UpsertHostelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Hostel name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.hostel(id)
	if h == nil {
		writeError(w, http.StatusNotFound, "Hostel not found")
		return
	}
	h.Name, h.Location, h.Active = req.Name, req.Location, req.Active
	for i := range b.rooms {
		if b.rooms[i].HostelID == id {
			b.rooms[i].HostelName = h.Name
		}
	}
	writeJSON(w, http.StatusOK, h)
}

func (b *Backend) hostel(id int64) *models.Hostel {
	for i := range b.hostels {
		if b.hostels[i].ID == id {
			return &b.hostels[i]
		}
	}
	return nil
}

func (b *Backend) listRooms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.rooms)
}

func (b *Backend) createRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.hostel(req.HostelID)
	if h == nil {
		writeError(w, http.StatusBadRequest, "Hostel not found")
		return
	}
	for _, room := range b.rooms {
		if room.HostelID == req.HostelID && room.RoomNumber == req.RoomNumber {
			writeError(w, http.StatusConflict, "Room number already exists in this hostel")
			return
		}
	}
	room := models.Room{
		ID: b.id(), HostelID: h.ID, HostelName: h.Name, RoomNumber: req.RoomNumber, Capacity: req.Capacity,
		RoomGender: req.RoomGender, HasAC: req.HasAC, HasWifi: req.HasWifi, MattressType: req.MattressType,
		Price: req.Price, FloorNumber: req.FloorNumber,
	}
	room.Status = roomStatus(room)
	b.rooms = append(b.rooms, room)
	writeJSON(w, http.StatusCreated, room)
}

func roomStatus(r models.Room) models.RoomStatus {
	if r.CurrentOccupancy >= r.Capacity {
		return models.RoomFull
	}
	return models.RoomAvailable
}

func (b *Backend) listBookings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.bookings)
}

// updateStatus only moves bookings out of PENDING_PAYMENT. Leaving it
// releases the bed unless the booking is approved.
func (b *Backend) updateStatus(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Method, b.StatusMethod) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req models.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Known() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var bk *models.Booking
	for i := range b.bookings {
		if b.bookings[i].ID == id {
			bk = &b.bookings[i]
		}
	}
	switch {
	case bk == nil:
		writeError(w, http.StatusNotFound, "Booking not found")
		return
	case bk.Status != models.StatusPendingPayment:
		writeError(w, http.StatusConflict, "Booking is no longer pending payment")
		return
	}

	bk.Status = req.Status
	switch req.Status {
	case models.StatusApproved:
		bk.PaymentStatus = "PAID"
	default:
		bk.PaymentStatus = "CANCELLED"
		b.release(*bk)
	}
	writeJSON(w, http.StatusOK, bk)
}

func (b *Backend) release(bk models.Booking) {
	for i := range b.rooms {
		room := &b.rooms[i]
		if room.HostelName == bk.HostelName && room.RoomNumber == bk.RoomNumber && room.CurrentOccupancy > 0 {
			room.CurrentOccupancy--
			room.Status = roomStatus(*room)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

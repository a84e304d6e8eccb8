package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hostel-portal/internal/models"
	"hostel-portal/internal/reports"
	"hostel-portal/internal/services"
	"hostel-portal/internal/validate"
	"hostel-portal/internal/workflow"
)

const recentBookings = 5

// AdminDashboardViewModel holds data for the admin home page.
type AdminDashboardViewModel struct {
	Stats  reports.DashboardStats
	Recent []models.Booking
	Error  string
}

// AdminDashboard renders the counters and the latest bookings.
func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	var vm AdminDashboardViewModel
	data, err := h.loadAll(r)
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Stats = reports.Dashboard(data.hostels, data.rooms, data.bookings)
	vm.Recent = data.bookings
	if len(vm.Recent) > recentBookings {
		vm.Recent = vm.Recent[:recentBookings]
	}
	h.render(w, r, "admin_dashboard.html", vm)
}

type dataset struct {
	hostels  []models.Hostel
	rooms    []models.Room
	bookings []models.Booking
}

// loadAll fetches the three admin collections and stops at the first
// failure.
func (h *Handlers) loadAll(r *http.Request) (dataset, error) {
	ctx := apiContext(r)
	var (
		d   dataset
		err error
	)
	if d.hostels, err = h.api.Hostels.List(ctx); err != nil {
		return d, err
	}
	if d.rooms, err = h.api.Rooms.List(ctx); err != nil {
		return d, err
	}
	if d.bookings, err = h.api.Bookings.List(ctx); err != nil {
		return d, err
	}
	return d, nil
}

// HostelsViewModel holds data for the hostel management page.
type HostelsViewModel struct {
	Hostels []models.Hostel
	Total   int
	Query   string
	Form    models.UpsertHostelRequest
	Error   string
}

// ListHostels renders every hostel, active or not, filtered by ?q=.
func (h *Handlers) ListHostels(w http.ResponseWriter, r *http.Request) {
	h.renderHostels(w, r, HostelsViewModel{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Form:  models.UpsertHostelRequest{Active: true},
	})
}

func (h *Handlers) renderHostels(w http.ResponseWriter, r *http.Request, vm HostelsViewModel) {
	hostels, err := h.api.Hostels.List(apiContext(r))
	if err != nil && vm.Error == "" {
		vm.Error = h.userMessage(err)
	}
	vm.Total = len(hostels)
	vm.Hostels = reports.FilterHostels(hostels, vm.Query)
	h.render(w, r, "hostels.html", vm)
}

func hostelForm(r *http.Request) models.UpsertHostelRequest {
	return models.UpsertHostelRequest{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Location: strings.TrimSpace(r.FormValue("location")),
		Active:   checked(r, "active"),
	}
}

// CreateHostel handles the new hostel form.
func (h *Handlers) CreateHostel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderHostels(w, r, HostelsViewModel{Error: "Invalid form submission"})
		return
	}
	form := hostelForm(r)
	if err := validate.Hostel(form); err != nil {
		h.renderHostels(w, r, HostelsViewModel{Form: form, Error: err.Error()})
		return
	}
	if _, err := h.api.Hostels.Create(apiContext(r), form); err != nil {
		h.renderHostels(w, r, HostelsViewModel{Form: form, Error: h.userMessage(err)})
		return
	}
	h.done(w, r, "/admin/hostels")
}

// HostelEditViewModel holds data for the hostel edit form.
type HostelEditViewModel struct {
	ID    int64
	Form  models.UpsertHostelRequest
	Error string
}

// EditHostelForm renders the edit form of one hostel.
func (h *Handlers) EditHostelForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	hostel, err := h.api.Hostels.Get(apiContext(r), id)
	if errors.Is(err, services.ErrNotFound) {
		http.Error(w, "Hostel not found", http.StatusNotFound)
		return
	}
	vm := HostelEditViewModel{ID: id}
	if err != nil {
		vm.Error = h.userMessage(err)
	} else {
		vm.Form = models.UpsertHostelRequest{Name: hostel.Name, Location: hostel.Location, Active: hostel.Active}
	}
	h.render(w, r, "hostel_edit.html", vm)
}

// UpdateHostel handles the edit form.
func (h *Handlers) UpdateHostel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "hostel_edit.html", HostelEditViewModel{ID: id, Error: "Invalid form submission"})
		return
	}
	vm := HostelEditViewModel{ID: id, Form: hostelForm(r)}
	if err := validate.Hostel(vm.Form); err != nil {
		vm.Error = err.Error()
		h.render(w, r, "hostel_edit.html", vm)
		return
	}
	if _, err := h.api.Hostels.Update(apiContext(r), id, vm.Form); err != nil {
		vm.Error = h.userMessage(err)
		h.render(w, r, "hostel_edit.html", vm)
		return
	}
	h.done(w, r, "/admin/hostels")
}

// ToggleHostel opens or closes a hostel for applications.
func (h *Handlers) ToggleHostel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ctx := apiContext(r)
	hostel, err := h.api.Hostels.Get(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		http.Error(w, "Hostel not found", http.StatusNotFound)
		return
	}
	if err == nil {
		_, err = h.api.Hostels.SetActive(ctx, *hostel, !hostel.Active)
	}
	if err != nil {
		h.renderHostels(w, r, HostelsViewModel{Error: h.userMessage(err)})
		return
	}
	h.done(w, r, "/admin/hostels")
}

// RoomsViewModel holds data for the room management page.
type RoomsViewModel struct {
	Rooms         []models.Room
	Hostels       []models.Hostel
	Form          models.CreateRoomRequest
	Genders       []models.Gender
	MattressTypes []models.MattressType
	Error         string
}

// ListRooms renders every room and the new room form.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	h.renderRooms(w, r, RoomsViewModel{}, true)
}

func (h *Handlers) renderRooms(w http.ResponseWriter, r *http.Request, vm RoomsViewModel, defaults bool) {
	ctx := apiContext(r)
	vm.Genders = models.Genders
	vm.MattressTypes = models.MattressTypes

	rooms, err := h.api.Rooms.List(ctx)
	if err == nil {
		vm.Hostels, err = h.api.Hostels.List(ctx)
	}
	if err != nil && vm.Error == "" {
		vm.Error = h.userMessage(err)
	}
	vm.Rooms = rooms
	if defaults {
		vm.Form = models.NewRoomDefaults(vm.Hostels)
	}
	h.render(w, r, "rooms.html", vm)
}

// CreateRoom handles the new room form.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRooms(w, r, RoomsViewModel{Error: "Invalid form submission"}, true)
		return
	}

	hostelID, _ := strconv.ParseInt(r.FormValue("hostelId"), 10, 64)
	capacity, _ := strconv.Atoi(r.FormValue("capacity"))
	floor, _ := strconv.Atoi(r.FormValue("floorNumber"))
	form := models.CreateRoomRequest{
		HostelID:     hostelID,
		RoomNumber:   strings.TrimSpace(r.FormValue("roomNumber")),
		Capacity:     capacity,
		RoomGender:   models.Gender(r.FormValue("roomGender")),
		HasAC:        checked(r, "hasAc"),
		HasWifi:      checked(r, "hasWifi"),
		MattressType: models.MattressType(r.FormValue("mattressType")),
		FloorNumber:  floor,
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		h.renderRooms(w, r, RoomsViewModel{Form: form, Error: "Price must be a number"}, false)
		return
	}
	form.Price = price

	if err := validate.Room(form); err != nil {
		h.renderRooms(w, r, RoomsViewModel{Form: form, Error: err.Error()}, false)
		return
	}
	if _, err := h.api.Rooms.Create(apiContext(r), form); err != nil {
		h.renderRooms(w, r, RoomsViewModel{Form: form, Error: h.userMessage(err)}, false)
		return
	}
	h.done(w, r, "/admin/rooms")
}

// BookingRow is a booking with the actions offered for it.
type BookingRow struct {
	models.Booking
	Actions    []workflow.Action
	Processing bool
}

func (h *Handlers) rows(screen workflow.Screen, owner string, bookings []models.Booking) []BookingRow {
	out := make([]BookingRow, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingRow{
			Booking:    b,
			Actions:    workflow.ActionsFor(screen, b.Status),
			Processing: h.processor.Processing(owner, b.ID),
		})
	}
	return out
}

// BookingsViewModel holds data for the booking management page.
type BookingsViewModel struct {
	Rows  []BookingRow
	Error string
}

// ListBookings renders every booking with Approve/Reject on pending rows.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	var vm BookingsViewModel
	bookings, err := h.api.Bookings.List(apiContext(r))
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Rows = h.rows(workflow.BookingsScreen, browserFrom(r).id, bookings)
	h.render(w, r, "bookings.html", vm)
}

// BookingAction approves or rejects a booking and shows the reloaded list.
func (h *Handlers) BookingAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := h.actionFromPath(w, r, workflow.BookingsScreen)
	if !ok {
		return
	}
	var vm BookingsViewModel
	bookings, err := h.applyAction(r, id, action)
	if err != nil {
		bookings, vm.Error = h.reloadBookings(r, h.userMessage(err))
	}
	vm.Rows = h.rows(workflow.BookingsScreen, browserFrom(r).id, bookings)
	h.render(w, r, "bookings.html", vm)
}

// actionFromPath resolves {id} and {action} for screen, answering 404
// itself when either is unknown.
func (h *Handlers) actionFromPath(w http.ResponseWriter, r *http.Request, screen workflow.Screen) (int64, workflow.Action, bool) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return 0, workflow.Action{}, false
	}
	action, ok := workflow.Lookup(screen, chi.URLParam(r, "action"))
	if !ok {
		http.NotFound(w, r)
		return 0, workflow.Action{}, false
	}
	return id, action, true
}

// reloadBookings refetches the list after a failed action. When that
// fails too, msg says so, so the empty table is not left unexplained.
func (h *Handlers) reloadBookings(r *http.Request, msg string) ([]models.Booking, string) {
	bookings, err := h.api.Bookings.List(apiContext(r))
	if err != nil {
		h.logger.Warn("reload bookings", "error", err)
		return nil, msg + " The booking list could not be reloaded: " + h.userMessage(err)
	}
	return bookings, msg
}

func (h *Handlers) applyAction(r *http.Request, id int64, action workflow.Action) ([]models.Booking, error) {
	b := browserFrom(r)
	bookings, err := h.processor.Apply(apiContext(r), workflow.Request{
		Owner:  b.id,
		Actor:  h.sessions.Actor(b.id),
		ID:     id,
		Action: action,
	})
	h.metrics.ObserveStatusChange(action.Name, err)
	return bookings, err
}

// PaymentsViewModel holds data for the payment management page.
type PaymentsViewModel struct {
	Rows     []BookingRow
	Statuses []string
	Filter   string
	Error    string
}

func paymentFilter(r *http.Request) string {
	if f := r.FormValue("status"); f != "" {
		return f
	}
	return reports.AllPayments
}

func (h *Handlers) renderPayments(w http.ResponseWriter, r *http.Request, bookings []models.Booking, vm PaymentsViewModel) {
	var records []models.Booking
	for _, b := range bookings {
		if b.HasPayment() {
			records = append(records, b)
		}
	}
	vm.Statuses = reports.PaymentStatuses(records)
	vm.Rows = h.rows(workflow.PaymentsScreen, browserFrom(r).id, reports.FilterPayments(records, vm.Filter))
	h.render(w, r, "payments.html", vm)
}

// ListPayments renders bookings that carry payment information, filtered
// by ?status=.
func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	vm := PaymentsViewModel{Filter: paymentFilter(r)}
	records, err := h.api.Payments.ListRecords(apiContext(r))
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	h.renderPayments(w, r, records, vm)
}

// PaymentAction confirms or cancels a pending payment.
func (h *Handlers) PaymentAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := h.actionFromPath(w, r, workflow.PaymentsScreen)
	if !ok {
		return
	}
	vm := PaymentsViewModel{Filter: paymentFilter(r)}
	bookings, err := h.applyAction(r, id, action)
	if err != nil {
		bookings, vm.Error = h.reloadBookings(r, h.userMessage(err))
	}
	h.renderPayments(w, r, bookings, vm)
}

// StudentsViewModel holds data for the student roll-up page.
type StudentsViewModel struct {
	Students []reports.StudentSummary
	Total    int
	Query    string
	Error    string
}

// ListStudents groups bookings by student, filtered by ?q=.
func (h *Handlers) ListStudents(w http.ResponseWriter, r *http.Request) {
	vm := StudentsViewModel{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	bookings, err := h.api.Bookings.List(apiContext(r))
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	all := reports.StudentRollup(bookings)
	vm.Total = len(all)
	vm.Students = reports.FilterStudents(all, vm.Query)
	h.render(w, r, "students.html", vm)
}

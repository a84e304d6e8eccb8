package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/guard"
	"hostel-portal/internal/models"
	"hostel-portal/internal/reports"
	"hostel-portal/internal/validate"
)

// currentBooking returns the student's booking, or nil when the backend
// answers 404 or 400, which is how it says there is none.
func (h *Handlers) currentBooking(ctx context.Context) (*models.Booking, error) {
	b, err := h.api.Students.MyBooking(ctx)
	switch apiclient.StatusOf(err) {
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, nil
	}
	return b, err
}

// signedOut handles a 401 from the backend. The token is no longer
// accepted, so the session is signed out and the visitor sent to log in
// again. It reports whether it answered the request.
func (h *Handlers) signedOut(w http.ResponseWriter, r *http.Request, err error) bool {
	if apiclient.StatusOf(err) != http.StatusUnauthorized {
		return false
	}
	h.logger.Info("backend rejected session token, signing out")
	if lerr := browserFrom(r).holder.Logout(); lerr != nil {
		h.logger.Error("logout", "error", lerr)
	}
	attempted := ""
	if r.Method == http.MethodGet {
		attempted = r.URL.RequestURI()
	}
	h.redirect(w, r, guard.LoginURL(attempted))
	return true
}

// StudentDashboardViewModel holds data for the student home page.
type StudentDashboardViewModel struct {
	Profile *models.StudentProfile
	Booking *models.Booking
	Error   string
}

// StudentDashboard renders the profile card and the current booking.
func (h *Handlers) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	vm := StudentDashboardViewModel{Profile: h.state(r).Profile}
	booking, err := h.currentBooking(apiContext(r))
	if h.signedOut(w, r, err) {
		return
	}
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Booking = booking
	h.render(w, r, "student_dashboard.html", vm)
}

// ApplyViewModel holds data for the application form and its result.
type ApplyViewModel struct {
	Hostels       []models.Hostel
	Form          models.Preferences
	MattressTypes []models.MattressType
	Result        *models.ApplyResult
	Error         string
}

func defaultPreferences(hostels []models.Hostel) models.Preferences {
	p := models.Preferences{PreferredCapacity: 2, HasWifi: true, MattressType: models.MattressNormal}
	if len(hostels) > 0 {
		p.HostelID = hostels[0].ID
	}
	return p
}

// ApplyForm renders the application form with the hostels open for
// applications.
func (h *Handlers) ApplyForm(w http.ResponseWriter, r *http.Request) {
	vm := ApplyViewModel{MattressTypes: models.MattressTypes}
	hostels, err := h.api.Hostels.ListActive(apiContext(r))
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Hostels = hostels
	vm.Form = defaultPreferences(hostels)
	h.render(w, r, "apply.html", vm)
}

// Apply submits the preferences and shows the allocation result.
func (h *Handlers) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := apiContext(r)
	vm := ApplyViewModel{MattressTypes: models.MattressTypes}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.render(w, r, "apply.html", vm)
		return
	}

	hostelID, _ := strconv.ParseInt(r.FormValue("hostelId"), 10, 64)
	capacity, _ := strconv.Atoi(r.FormValue("preferredCapacity"))
	vm.Form = models.Preferences{
		HostelID:          hostelID,
		PreferredCapacity: capacity,
		HasAC:             checked(r, "hasAc"),
		HasWifi:           checked(r, "hasWifi"),
		MattressType:      models.MattressType(r.FormValue("mattressType")),
		SpecialRequests:   strings.TrimSpace(r.FormValue("specialRequests")),
	}

	if err := validate.Preferences(vm.Form); err != nil {
		vm.Error = err.Error()
	} else if res, err := h.api.Students.Apply(ctx, vm.Form); err != nil {
		vm.Error = h.userMessage(err)
	} else {
		vm.Result = res
		h.logger.Info("application submitted", "status", res.Status)
	}

	if vm.Result == nil {
		if hostels, err := h.api.Hostels.ListActive(ctx); err == nil {
			vm.Hostels = hostels
		}
	}
	h.render(w, r, "apply.html", vm)
}

// BookingViewModel holds data for the booking details page.
type BookingViewModel struct {
	Booking *models.Booking
	Error   string
}

// MyBooking renders the student's current booking.
func (h *Handlers) MyBooking(w http.ResponseWriter, r *http.Request) {
	var vm BookingViewModel
	booking, err := h.currentBooking(apiContext(r))
	if h.signedOut(w, r, err) {
		return
	}
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Booking = booking
	h.render(w, r, "booking.html", vm)
}

// MyPaymentsViewModel holds data for the student payments page.
type MyPaymentsViewModel struct {
	Summary *reports.PaymentSummary
	Error   string
}

// MyPayments renders the payment card derived from the current booking.
func (h *Handlers) MyPayments(w http.ResponseWriter, r *http.Request) {
	var vm MyPaymentsViewModel
	booking, err := h.currentBooking(apiContext(r))
	if h.signedOut(w, r, err) {
		return
	}
	if err != nil {
		vm.Error = h.userMessage(err)
	}
	vm.Summary = reports.PaymentSummaryOf(booking)
	h.render(w, r, "my_payments.html", vm)
}

// PreferencesGuideViewModel holds data for the room preferences guide.
type PreferencesGuideViewModel struct {
	MattressTypes []models.MattressType
}

// PreferencesGuide explains the options of the application form.
func (h *Handlers) PreferencesGuide(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "preferences.html", PreferencesGuideViewModel{MattressTypes: models.MattressTypes})
}

// ProfileViewModel holds data for the profile page.
type ProfileViewModel struct {
	Profile *models.StudentProfile
	Form    models.UpdateProfileRequest
	Success string
	Error   string
}

func profileForm(p *models.StudentProfile) models.UpdateProfileRequest {
	if p == nil {
		return models.UpdateProfileRequest{}
	}
	return models.UpdateProfileRequest{FullName: p.FullName, Phone: p.Phone, ProfileImageURL: p.ProfileImageURL}
}

// ProfileForm renders the profile editor with fresh data from the backend.
func (h *Handlers) ProfileForm(w http.ResponseWriter, r *http.Request) {
	vm := ProfileViewModel{Profile: h.state(r).Profile}
	if p, err := h.api.Students.Profile(apiContext(r)); err != nil {
		vm.Error = h.userMessage(err)
	} else {
		vm.Profile = p
		browserFrom(r).holder.SetProfile(p)
	}
	vm.Form = profileForm(vm.Profile)
	h.render(w, r, "profile.html", vm)
}

// UpdateProfile saves the editable profile fields. Email and gender are
// shown but never sent.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	vm := ProfileViewModel{Profile: h.state(r).Profile}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.render(w, r, "profile.html", vm)
		return
	}

	vm.Form = models.UpdateProfileRequest{
		FullName:        strings.TrimSpace(r.FormValue("fullName")),
		Phone:           strings.TrimSpace(r.FormValue("phone")),
		ProfileImageURL: strings.TrimSpace(r.FormValue("profileImageUrl")),
	}
	if err := validate.Profile(vm.Form); err != nil {
		vm.Error = err.Error()
		h.render(w, r, "profile.html", vm)
		return
	}

	updated, err := h.api.Students.UpdateProfile(apiContext(r), vm.Form)
	if err != nil {
		vm.Error = h.userMessage(err)
		h.render(w, r, "profile.html", vm)
		return
	}

	browserFrom(r).holder.SetProfile(updated)
	vm.Profile = updated
	vm.Form = profileForm(updated)
	vm.Success = "Profile updated successfully"
	h.render(w, r, "profile.html", vm)
}

func checked(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-portal/internal/apiclient"
	"hostel-portal/internal/audit"
	"hostel-portal/internal/auth"
	"hostel-portal/internal/models"
	"hostel-portal/internal/ratelimit"
	"hostel-portal/internal/services"
	"hostel-portal/internal/session"
	"hostel-portal/internal/storage"
	"hostel-portal/internal/testbackend"
	"hostel-portal/internal/workflow"
)

type portal struct {
	t        *testing.T
	backend  *testbackend.Backend
	recorder *audit.Recorder
	db       *storage.DB
	sessions *session.Manager
	server   *httptest.Server
	client   *http.Client
}

func newPortal(t *testing.T, configure ...func(*Options)) *portal {
	t.Helper()

	backend := testbackend.New()
	backend.Seed()
	api := httptest.NewServer(backend.Handler())
	t.Cleanup(api.Close)

	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sealer, err := auth.NewSealer("test-secret")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	set := services.NewSet(apiclient.New(api.URL, 2*time.Second), http.MethodPatch)
	sessions := session.NewManager(db, sealer, session.Deps{Auth: set.Auth, Profiles: set.Students, Logger: logger})
	recorder := &audit.Recorder{}

	opts := Options{
		Sessions:    sessions,
		Services:    set,
		Processor:   workflow.NewProcessor(set.Bookings, recorder, logger),
		Logger:      logger,
		TemplateDir: "../../web/templates",
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h := NewHandlers(opts)
	r := chi.NewRouter()
	h.Mount(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &portal{t: t, backend: backend, recorder: recorder, db: db, sessions: sessions, server: server, client: client}
}

func (p *portal) do(req *http.Request) (*http.Response, string) {
	p.t.Helper()
	resp, err := p.client.Do(req)
	require.NoError(p.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(p.t, err)
	return resp, string(body)
}

func (p *portal) get(path string) (*http.Response, string) {
	p.t.Helper()
	req, err := http.NewRequest(http.MethodGet, p.server.URL+path, nil)
	require.NoError(p.t, err)
	return p.do(req)
}

func (p *portal) post(path string, form url.Values) (*http.Response, string) {
	p.t.Helper()
	req, err := http.NewRequest(http.MethodPost, p.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(p.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req)
}

// sessionID returns the session cookie held by the client's jar.
func (p *portal) sessionID() string {
	p.t.Helper()
	u, err := url.Parse(p.server.URL)
	require.NoError(p.t, err)
	for _, c := range p.client.Jar.Cookies(u) {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	return ""
}

// getWithCookie sends a GET carrying only the given session id.
func (p *portal) getWithCookie(path, id string) *http.Response {
	p.t.Helper()
	req, err := http.NewRequest(http.MethodGet, p.server.URL+path, nil)
	require.NoError(p.t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	client := &http.Client{CheckRedirect: p.client.CheckRedirect}
	resp, err := client.Do(req)
	require.NoError(p.t, err)
	resp.Body.Close()
	return resp
}

func (p *portal) login(email, password string) {
	p.t.Helper()
	resp, _ := p.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(p.t, http.StatusFound, resp.StatusCode)
}

func TestAnonymousVisitsStoreNothing(t *testing.T) {
	p := newPortal(t)

	for range 50 {
		resp, err := http.Get(p.server.URL + "/")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		for _, c := range resp.Cookies() {
			assert.NotEqual(t, SessionCookieName, c.Name, "anonymous visits get no session cookie")
		}
	}
	_, body := p.get("/login")
	assert.Contains(t, body, `data-theme="light"`)

	count, err := p.db.SessionCount()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, p.sessions.Cached())
}

func TestThemeStartsSession(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.post("/theme", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			found = true
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		}
	}
	assert.True(t, found, "session cookie should be set")

	_, body := p.get("/")
	assert.Contains(t, body, `data-theme="dark"`)
}

func TestUnknownCookieIsCleared(t *testing.T) {
	p := newPortal(t)

	req, err := http.NewRequest(http.MethodGet, p.server.URL+"/", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			cleared = c.Value == "" && c.MaxAge < 0
		}
	}
	assert.True(t, cleared, "stale cookie should be removed")

	count, err := p.db.SessionCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoginRotatesSessionID(t *testing.T) {
	p := newPortal(t)

	p.post("/theme", nil)
	before := p.sessionID()
	require.NotEmpty(t, before)

	p.login("admin@uni.edu", "admin123")
	after := p.sessionID()
	require.NotEmpty(t, after)
	assert.NotEqual(t, before, after)

	resp := p.getWithCookie("/admin/bookings", before)
	assert.Equal(t, http.StatusFound, resp.StatusCode, "pre-login id must not authenticate")
	resp = p.getWithCookie("/admin/bookings", after)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := p.get("/")
	assert.Contains(t, body, `data-theme="dark"`, "theme carries over")

	p.post("/logout", nil)
	p.login("admin@uni.edu", "admin123")
	again := p.sessionID()
	assert.NotEqual(t, after, again)
	resp = p.getWithCookie("/admin/bookings", after)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	count, err := p.db.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "retired ids are deleted")
}

func TestRegisterRotatesSessionID(t *testing.T) {
	p := newPortal(t)

	p.post("/theme", nil)
	before := p.sessionID()

	resp, _ := p.post("/register", url.Values{
		"fullName":        {"New Student"},
		"email":           {"new@uni.edu"},
		"phone":           {"0800000002"},
		"gender":          {"MALE"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotEqual(t, before, p.sessionID())
	assert.Equal(t, http.StatusFound, p.getWithCookie("/student", before).StatusCode)
}

func TestProtectedPageRoundTripsThroughLogin(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.get("/admin/rooms")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?from=%2Fadmin%2Frooms", resp.Header.Get("Location"))

	resp, body := p.get(resp.Header.Get("Location"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="/admin/rooms"`)

	resp, _ = p.post("/login", url.Values{
		"email":    {"admin@uni.edu"},
		"password": {"admin123"},
		"from":     {"/admin/rooms"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin/rooms", resp.Header.Get("Location"))

	resp, body = p.get("/admin/rooms")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "N101")
}

func TestLoginIgnoresForeignReturnPath(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.post("/login", url.Values{
		"email":    {"student@uni.edu"},
		"password": {"student123"},
		"from":     {"//evil.example/steal"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student", resp.Header.Get("Location"))
}

func TestStudentIsSentHomeFromAdmin(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	resp, _ := p.get("/admin")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student", resp.Header.Get("Location"))

	resp, body := p.get("/student")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Amina Okafor")
}

func TestSignedInVisitorSkipsLogin(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	resp, _ := p.get("/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestLoginShowsBackendMessage(t *testing.T) {
	p := newPortal(t)

	resp, body := p.post("/login", url.Values{"email": {"admin@uni.edu"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid email or password")

	resp, _ = p.get("/admin")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginRequiresBothFields(t *testing.T) {
	p := newPortal(t)

	_, body := p.post("/login", url.Values{"email": {"admin@uni.edu"}})
	assert.Contains(t, body, "Email and password are required")
	assert.Empty(t, p.backend.CallsTo(http.MethodPost, "/api/auth/login"))
}

func TestLoginIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := ratelimit.New(rdb, ratelimit.Config{Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	p := newPortal(t, func(o *Options) { o.Limiter = limiter })

	form := url.Values{"email": {"admin@uni.edu"}, "password": {"wrong"}}
	for range 2 {
		resp, body := p.post("/login", form)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Invalid email or password")
	}

	resp, body := p.post("/login", form)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Contains(t, body, "Too many attempts")
	assert.Len(t, p.backend.CallsTo(http.MethodPost, "/api/auth/login"), 2)

	resp, _ = p.get("/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the form itself stays reachable")
}

func TestHTMXRedirectUsesHeader(t *testing.T) {
	p := newPortal(t)

	req, err := http.NewRequest(http.MethodGet, p.server.URL+"/admin", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, _ := p.do(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/login?from=%2Fadmin", resp.Header.Get("HX-Redirect"))
}

func TestHTMXRendersContentOnly(t *testing.T) {
	p := newPortal(t)

	req, err := http.NewRequest(http.MethodGet, p.server.URL+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, body := p.do(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "login-form")
	assert.NotContains(t, body, "<html")
}

func TestRegisterChecksPasswordsLocally(t *testing.T) {
	p := newPortal(t)

	_, body := p.post("/register", url.Values{
		"fullName":        {"New Student"},
		"email":           {"new@uni.edu"},
		"phone":           {"0800000002"},
		"gender":          {"MALE"},
		"password":        {"secret1"},
		"confirmPassword": {"secret2"},
	})
	assert.Contains(t, body, "Passwords do not match")
	assert.Empty(t, p.backend.CallsTo(http.MethodPost, "/api/auth/register"))
}

func TestRegisterSignsIn(t *testing.T) {
	p := newPortal(t)

	resp, _ := p.post("/register", url.Values{
		"fullName":        {"New Student"},
		"email":           {"new@uni.edu"},
		"phone":           {"0800000002"},
		"gender":          {"MALE"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student", resp.Header.Get("Location"))

	_, body := p.get("/student")
	assert.Contains(t, body, "New Student")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	p := newPortal(t)

	_, body := p.post("/register", url.Values{
		"fullName":        {"Copy"},
		"email":           {"student@uni.edu"},
		"phone":           {"0800000003"},
		"gender":          {"FEMALE"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	assert.Contains(t, body, "Email is already registered")
}

func TestLogoutKeepsTheme(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	resp, _ := p.post("/theme", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = p.post("/logout", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = p.get("/student")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := p.get("/")
	assert.Contains(t, body, `data-theme="dark"`)
}

func TestApproveBooking(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	_, body := p.get("/admin/bookings")
	assert.Contains(t, body, "Tunde Bello")
	assert.Contains(t, body, "action-approve")

	resp, body := p.post("/admin/bookings/9/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "badge-success")
	assert.NotContains(t, body, "action-approve")

	calls := p.backend.CallsTo(http.MethodPatch, "/api/admin/bookings/9/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"APPROVED"}`, calls[0].Body)
	assert.True(t, strings.HasPrefix(calls[0].Auth, "Bearer "))

	stored, ok := p.backend.Booking(9)
	require.True(t, ok)
	assert.Equal(t, models.StatusApproved, stored.Status)

	events := p.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(9), events[0].BookingID)
}

func TestAuditActorHidesSessionID(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")
	id := p.sessionID()
	require.NotEmpty(t, id)

	p.post("/admin/bookings/9/approve", nil)

	events := p.recorder.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].Actor)
	assert.NotContains(t, events[0].Actor, id)
	assert.Equal(t, p.sessions.Actor(id), events[0].Actor)
}

func TestActionReloadFailureIsExplained(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")
	p.backend.FailNext("PATCH /api/admin/bookings/9/status", 1)
	p.backend.FailNext("GET /api/admin/bookings", 1)

	resp, body := p.post("/admin/bookings/9/approve", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The booking list could not be reloaded")
}

func TestSecondActionShowsBackendError(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	p.post("/admin/bookings/9/approve", nil)
	_, body := p.post("/admin/bookings/9/reject", nil)

	assert.Contains(t, body, "Booking is no longer pending payment")
	assert.Contains(t, body, "Tunde Bello")
}

func TestBookingActionNotOfferedOnScreen(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	resp, _ := p.post("/admin/bookings/9/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, p.backend.CallsTo(http.MethodPatch, "/api/admin/bookings/9/status"))
}

func TestCancelPayment(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	_, body := p.get("/admin/payments?status=PENDING")
	assert.Contains(t, body, "action-confirm")

	resp, body := p.post("/admin/payments/9/cancel", url.Values{"status": {"ALL"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "badge-danger")

	calls := p.backend.CallsTo(http.MethodPatch, "/api/admin/bookings/9/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"CANCELLED"}`, calls[0].Body)
}

func TestApplyAllocatesRoom(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	_, body := p.get("/student/apply")
	assert.Contains(t, body, "North Hall")
	assert.NotContains(t, body, "Annex")

	_, body = p.post("/student/apply", url.Values{
		"hostelId":          {"3"},
		"preferredCapacity": {"2"},
		"hasWifi":           {"on"},
		"mattressType":      {"NORMAL"},
		"specialRequests":   {"Near the stairs"},
	})
	assert.Contains(t, body, "Room allocated")
	assert.Contains(t, body, "N101")

	_, body = p.get("/student/payments")
	assert.Contains(t, body, "PENDING")
	assert.Contains(t, body, "1200.00")

	_, body = p.post("/student/apply", url.Values{
		"hostelId":          {"3"},
		"preferredCapacity": {"2"},
		"mattressType":      {"NORMAL"},
	})
	assert.Contains(t, body, "You already have an active booking")
}

func TestApplyWithoutMatchIsRejected(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	_, body := p.post("/student/apply", url.Values{
		"hostelId":          {"3"},
		"preferredCapacity": {"4"},
		"hasAc":             {"on"},
		"mattressType":      {"QUEEN"},
	})
	assert.Contains(t, body, "No matching room")
}

func TestStudentWithoutBooking(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	resp, body := p.get("/student")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "no-booking")
}

func TestRevokedTokenSignsStudentOut(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")
	p.backend.RevokeTokens("student@uni.edu")

	resp, _ := p.get("/student/booking")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?from=%2Fstudent%2Fbooking", resp.Header.Get("Location"))

	resp, _ = p.get("/student")
	assert.Equal(t, http.StatusFound, resp.StatusCode, "session no longer authenticated")
}

func TestProfileRejectsUnsupportedImageURL(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	_, body := p.post("/student/profile", url.Values{
		"fullName":        {"Amina Okafor"},
		"phone":           {"0800000001"},
		"profileImageUrl": {"ftp://example.com/me.png"},
	})
	assert.Contains(t, body, "must start with http://, https:// or data:image/")
	assert.Empty(t, p.backend.CallsTo(http.MethodPut, "/api/student/profile"))
}

func TestProfileUpdate(t *testing.T) {
	p := newPortal(t)
	p.login("student@uni.edu", "student123")

	_, body := p.post("/student/profile", url.Values{
		"fullName": {"Amina O. Okafor"},
		"phone":    {"0800000009"},
	})
	assert.Contains(t, body, "Profile updated successfully")

	_, body = p.get("/student")
	assert.Contains(t, body, "Amina O. Okafor")
}

func TestHostelLifecycle(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	resp, _ := p.post("/admin/hostels", url.Values{
		"name":     {"West Hall"},
		"location": {"West gate"},
		"active":   {"on"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/hostels", resp.Header.Get("Location"))

	_, body := p.get("/admin/hostels?q=west")
	assert.Contains(t, body, "West Hall")
	assert.Contains(t, body, "Showing 1 of 4 hostels")

	req, err := http.NewRequest(http.MethodPost, p.server.URL+"/admin/hostels/5/toggle", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, _ = p.do(req)
	assert.JSONEq(t, `{"path":"/admin/hostels","target":"#content"}`, resp.Header.Get("HX-Location"))

	calls := p.backend.CallsTo(http.MethodPut, "/api/admin/hostels/5")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Body, `"active":true`)
}

func TestEditUnknownHostel(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	resp, body := p.get("/admin/hostels/404/edit")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Hostel not found")
}

func TestCreateRoomRejectsBadPrice(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	_, body := p.post("/admin/rooms", url.Values{
		"hostelId":     {"3"},
		"roomNumber":   {"N103"},
		"capacity":     {"2"},
		"roomGender":   {"FEMALE"},
		"mattressType": {"NORMAL"},
		"floorNumber":  {"1"},
		"price":        {"cheap"},
	})
	assert.Contains(t, body, "Price must be a number")
	assert.Empty(t, p.backend.CallsTo(http.MethodPost, "/api/admin/rooms"))
}

func TestStudentsSearch(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	_, body := p.get("/admin/students?q=tunde")
	assert.Contains(t, body, "Tunde Bello")

	_, body = p.get("/admin/students?q=nobody")
	assert.Contains(t, body, "No students found.")
}

func TestDashboardShowsBackendFailure(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")
	p.backend.FailNext("GET /api/admin/bookings", 1)

	resp, body := p.get("/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alert-error")
}

func TestExportCSV(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	resp, body := p.get("/admin/reports/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment; filename=")
	assert.Contains(t, body, "North Hall")
}

func TestPrintReport(t *testing.T) {
	p := newPortal(t)
	p.login("admin@uni.edu", "admin123")

	_, body := p.get("/admin/reports/print")
	assert.Contains(t, body, "window.print()")

	_, body = p.get("/admin/reports/print?autoprint=0")
	assert.Contains(t, body, "South Hall")
	assert.NotContains(t, body, "window.print()")
}

type blockingProfiles struct{ release chan struct{} }

func (b blockingProfiles) Profile(ctx context.Context) (*models.StudentProfile, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return &models.StudentProfile{FullName: "Slow Student"}, nil
}

func TestProtectedShowsLoadingWhileProfileLoads(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	deps := session.Deps{Profiles: blockingProfiles{release: release}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	restored := session.Persisted{Token: "token", Role: models.RoleStudent}
	holder := session.NewHolder(deps, session.NewMemoryStore(restored), restored)

	h := NewHandlers(Options{
		Services:    services.NewSet(apiclient.New("http://127.0.0.1:0", time.Second), http.MethodPatch),
		Logger:      deps.Logger,
		TemplateDir: "../../web/templates",
		ProfileWait: 10 * time.Millisecond,
	})

	var reached bool
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })

	req := httptest.NewRequest(http.MethodGet, "/student/booking", nil)
	req = req.WithContext(context.WithValue(req.Context(), browserContextKey, &browser{id: "b1", holder: holder}))
	rec := httptest.NewRecorder()
	h.Protected("student", models.RoleStudent)(next).ServeHTTP(rec, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
	assert.Contains(t, rec.Body.String(), "Loading your session")
}

package guard

import (
	"testing"

	"hostel-portal/internal/models"
	"hostel-portal/internal/session"

	"github.com/stretchr/testify/assert"
)

var (
	anonymous = session.State{}
	loading   = session.State{Token: "t", Role: models.RoleStudent, Loading: true}
	student   = session.State{Token: "t", Role: models.RoleStudent}
	admin     = session.State{Token: "t", Role: models.RoleAdmin}
	adminOnly = []models.Role{models.RoleAdmin}
)

func TestProtected(t *testing.T) {
	tests := []struct {
		name      string
		state     session.State
		attempted string
		want      Decision
	}{
		{"loading renders placeholder", loading, "/admin", Decision{Outcome: Loading}},
		{"anonymous goes to login with location", anonymous, "/admin/rooms", Decision{Outcome: Redirect, Location: "/login?from=%2Fadmin%2Frooms"}},
		{"student on admin goes home", student, "/admin", Decision{Outcome: Redirect, Location: "/student"}},
		{"admin renders", admin, "/admin/rooms", Decision{Outcome: Render}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Protected(tt.state, adminOnly, tt.attempted))
		})
	}
}

func TestProtected_UnknownRoleGoesToStudentHome(t *testing.T) {
	s := session.State{Token: "t", Role: "WARDEN"}
	assert.Equal(t, Decision{Outcome: Redirect, Location: "/student"}, Protected(s, adminOnly, "/admin"))
}

func TestPublic(t *testing.T) {
	assert.Equal(t, Decision{Outcome: Loading}, Public(loading))
	assert.Equal(t, Decision{Outcome: Render}, Public(anonymous))
	assert.Equal(t, Decision{Outcome: Redirect, Location: "/admin"}, Public(admin))
	assert.Equal(t, Decision{Outcome: Redirect, Location: "/student"}, Public(student))
}

func TestSafeReturn(t *testing.T) {
	assert.Equal(t, "/admin/rooms?x=1", SafeReturn("/admin/rooms?x=1"))
	assert.Empty(t, SafeReturn("https://evil.example/admin"))
	assert.Empty(t, SafeReturn("//evil.example"))
	assert.Empty(t, SafeReturn(`/\evil.example`))
	assert.Empty(t, SafeReturn("/login?from=/admin"))
	assert.Empty(t, SafeReturn("admin"))
	assert.Equal(t, LoginPath, LoginURL(""))
}

func TestReturnTo(t *testing.T) {
	assert.Equal(t, "/admin/rooms", ReturnTo(models.RoleAdmin, "/admin/rooms"))
	assert.Equal(t, "/admin", ReturnTo(models.RoleAdmin, "/student/booking"))
	assert.Equal(t, "/student", ReturnTo(models.RoleStudent, ""))
	assert.Equal(t, "/student", ReturnTo(models.RoleStudent, "/studentx"))
}

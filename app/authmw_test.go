package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"school_inventory_tool/models"
)

func serveAs(caller *models.Caller, mw gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if caller != nil {
			SetCaller(c, *caller)
		}
	})
	r.GET("/x", mw, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		caller *models.Caller
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", &models.Caller{ID: "u1", Role: models.RoleStudent}, http.StatusForbidden},
		{"teacher", &models.Caller{ID: "u2", Role: models.RoleTeacher}, http.StatusForbidden},
		{"manager", &models.Caller{ID: "u3", Role: models.RoleManager}, http.StatusNoContent},
		{"admin", &models.Caller{ID: "u4", Role: models.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serveAs(tc.caller, ManagerOnly()))
		})
	}

	assert.Equal(t, http.StatusForbidden, serveAs(&models.Caller{ID: "u3", Role: models.RoleManager}, AdminOnly()))
}

func TestCallerRoundTripThroughContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CallerFrom(c)
	assert.False(t, ok)

	in := models.Caller{ID: "u1", Role: models.RoleTeacher, Department: "Physics", Course: "PHY101"}
	SetCaller(c, in)
	got, ok := CallerFrom(c)
	assert.True(t, ok)
	assert.Equal(t, in, got)
}

func TestInviteLink(t *testing.T) {
	assert.Equal(t, "https://school.example/login?inviteToken=abc", InviteLink("https://school.example/", "abc"))
	assert.Len(t, NewToken(), 32)
}

func TestCORSConfig_MergesOrigins(t *testing.T) {
	cfg := corsConfig("http://localhost:5173", []string{"http://localhost:5173", "", "https://inv.school.test"})
	assert.Equal(t, []string{"http://localhost:5173", "https://inv.school.test"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.ExposeHeaders, "X-Cache")
	assert.True(t, cfg.AllowCredentials)
}

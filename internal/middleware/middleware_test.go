package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/bakery-api/internal/model"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func claimsFor(id uuid.UUID, kind, role string, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{"sub": id.String(), "kind": kind, "role": role, "exp": time.Now().Add(exp).Unix()}
}

func newRouter() *gin.Engine {
	r := gin.New()
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetAccountID(c).String(), "role": GetRole(c)})
	}
	r.GET("/user", UserAuth(secret, nil), ok)
	r.GET("/admin", AdminAuth(secret, nil), ok)
	r.GET("/super", AdminAuth(secret, nil), RequireRole(model.AdminRoleSuperAdmin), ok)
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuards(t *testing.T) {
	r := newRouter()
	id := uuid.New()
	user := sign(t, claimsFor(id, model.AccountKindUser, "", time.Hour), secret)
	admin := sign(t, claimsFor(id, model.AccountKindAdmin, model.AdminRoleAdmin, time.Hour), secret)
	super := sign(t, claimsFor(id, model.AccountKindAdmin, model.AdminRoleSuperAdmin, time.Hour), secret)

	cases := []struct {
		name, path, token string
		want              int
	}{
		{"user on user route", "/user", user, http.StatusOK},
		{"admin on user route", "/user", admin, http.StatusForbidden},
		{"user on admin route", "/admin", user, http.StatusForbidden},
		{"admin on admin route", "/admin", admin, http.StatusOK},
		{"missing token", "/admin", "", http.StatusUnauthorized},
		{"expired token", "/user", sign(t, claimsFor(id, model.AccountKindUser, "", -time.Minute), secret), http.StatusUnauthorized},
		{"wrong key", "/user", sign(t, claimsFor(id, model.AccountKindUser, "", time.Hour), "other"), http.StatusUnauthorized},
		{"admin on superadmin route", "/super", admin, http.StatusForbidden},
		{"superadmin on superadmin route", "/super", super, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.path, tc.token)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), id.String())
			}
		})
	}
}

func TestQueryTokenOnlyForWebsocket(t *testing.T) {
	r := newRouter()
	admin := sign(t, claimsFor(uuid.New(), model.AccountKindAdmin, model.AdminRoleAdmin, time.Hour), secret)

	w := do(r, "/admin?token="+admin, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin?token="+admin, nil)
	req.Header.Set("Connection", "upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	do(r, "/ping", "")
	out := buf.String()
	assert.Contains(t, out, `"path":"/ping"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"level":"WARN"`)
}

type stubAccounts struct {
	active map[uuid.UUID]bool
	err    error
}

func (s stubAccounts) IsActive(_ context.Context, id uuid.UUID) (bool, error) {
	return s.active[id], s.err
}

func TestGuards_RejectDeactivatedAccounts(t *testing.T) {
	live, disabled := uuid.New(), uuid.New()
	accounts := stubAccounts{active: map[uuid.UUID]bool{live: true, disabled: false}}

	r := gin.New()
	r.GET("/user", UserAuth(secret, accounts), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", AdminAuth(secret, accounts), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, "/user", sign(t, claimsFor(live, model.AccountKindUser, "", time.Hour), secret)).Code)

	w := do(r, "/user", sign(t, claimsFor(disabled, model.AccountKindUser, "", time.Hour), secret))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Cuenta desactivada")

	w = do(r, "/user", sign(t, claimsFor(uuid.New(), model.AccountKindUser, "", time.Hour), secret))
	assert.Equal(t, http.StatusForbidden, w.Code, "unknown account")

	w = do(r, "/admin", sign(t, claimsFor(disabled, model.AccountKindAdmin, model.AdminRoleAdmin, time.Hour), secret))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuards_AccountLookupFailure(t *testing.T) {
	id := uuid.New()
	r := gin.New()
	r.GET("/user", UserAuth(secret, stubAccounts{err: errors.New("db down")}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, "/user", sign(t, claimsFor(id, model.AccountKindUser, "", time.Hour), secret))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

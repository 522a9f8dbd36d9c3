package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/api"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, rawToken string) (*api.Claims, error)

func (f verifierFunc) Verify(ctx context.Context, rawToken string) (*api.Claims, error) {
	return f(ctx, rawToken)
}

func newAuthedEcho(claims *api.Claims, minRole api.Role) *echo.Echo {
	verifier := verifierFunc(func(_ context.Context, rawToken string) (*api.Claims, error) {
		if rawToken != "good" {
			return nil, errors.New("bad token")
		}
		return claims, nil
	})

	e := echo.New()
	e.Use(Authentication(verifier))
	e.GET("/resource", AuthorizeHandler(func(c echo.Context) error {
		return c.String(http.StatusOK, GetUser(c))
	}, minRole))
	return e
}

func get(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticationRejectsMissingOrBadToken(t *testing.T) {
	e := newAuthedEcho(&api.Claims{Roles: []string{"ADMIN"}}, api.AdminRole)

	require.Equal(t, http.StatusUnauthorized, get(e, "").Code)
	require.Equal(t, http.StatusUnauthorized, get(e, "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, get(e, "Bearer bad").Code)
}

func TestAuthorizeRoleLadder(t *testing.T) {
	cases := []struct {
		roles   []string
		minRole api.Role
		code    int
	}{
		{[]string{"ADMIN"}, api.AdminRole, http.StatusOK},
		{[]string{"QA"}, api.AdminRole, http.StatusForbidden},
		{[]string{"QA"}, api.SupervisorRole, http.StatusOK},
		{[]string{"SUPERVISOR", "USER"}, api.QARole, http.StatusForbidden},
		{[]string{"USER", "ADMIN"}, api.AdminRole, http.StatusOK}, // highest role wins
		{nil, api.UserRole, http.StatusForbidden},                 // no roles fails closed
		{[]string{"superuser"}, api.UserRole, http.StatusForbidden},
	}

	for _, tc := range cases {
		e := newAuthedEcho(&api.Claims{Subject: "u-1", Roles: tc.roles}, tc.minRole)
		require.Equal(t, tc.code, get(e, "Bearer good").Code, "roles=%v min=%s", tc.roles, tc.minRole)
	}
}

func TestGetUserPrefersUsername(t *testing.T) {
	e := newAuthedEcho(&api.Claims{
		Subject:           "f3b9",
		PreferredUsername: "admin1",
		Roles:             []string{"ADMIN"},
	}, api.AdminRole)
	rec := get(e, "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin1", rec.Body.String())

	e = newAuthedEcho(&api.Claims{Subject: "f3b9", Roles: []string{"ADMIN"}}, api.AdminRole)
	rec = get(e, "Bearer good")
	require.Equal(t, "f3b9", rec.Body.String())
}

package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndLogin(t *testing.T) {
	app := newTestApp(t)

	_, _ = app.signup(t, "poet@example.com")

	// wrong password
	w, out := app.do(t, http.MethodPost, "/login", gin.H{
		"username": "poet@example.com",
		"password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "/login", out["redirect"])

	// correct credentials issue a fresh session cookie
	w, out = app.do(t, http.MethodPost, "/login", gin.H{
		"username": "poet@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "/", out["redirect"])
	ck := sessionCookie(t, app.cfg, w)

	// the cookie authenticates protected routes
	w, _ = app.do(t, http.MethodGet, "/notifications", nil, ck)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	_, _ = app.signup(t, "taken@example.com")

	w, out := app.do(t, http.MethodPost, "/register", gin.H{
		"username":  "taken@example.com",
		"password":  "hunter22",
		"firstName": "Second",
		"lastName":  "Comer",
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "/register", out["redirect"])
}

func TestSignUpRejectsBadForm(t *testing.T) {
	app := newTestApp(t)

	w, out := app.do(t, http.MethodPost, "/register", gin.H{
		"username":  "not-an-email",
		"password":  "short",
		"firstName": "X",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, details, "username")
	require.Contains(t, details, "password")
	require.Contains(t, details, "lastName")
}

func TestAdminSignupCode(t *testing.T) {
	app := newTestApp(t)

	w, out := app.do(t, http.MethodPost, "/register", gin.H{
		"username":  "admin@example.com",
		"password":  "hunter22",
		"firstName": "Site",
		"lastName":  "Admin",
		"adminCode": testAdminCode,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	user := out["user"].(map[string]any)
	require.Equal(t, true, user["isAdmin"])

	// a wrong code registers a regular account
	w, out = app.do(t, http.MethodPost, "/register", gin.H{
		"username":  "user@example.com",
		"password":  "hunter22",
		"firstName": "Regular",
		"lastName":  "User",
		"adminCode": "guessed",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	user = out["user"].(map[string]any)
	require.Equal(t, false, user["isAdmin"])
}

func TestLogoutDropsSession(t *testing.T) {
	app := newTestApp(t)
	ck, _ := app.signup(t, "leaver@example.com")

	w, _ := app.do(t, http.MethodPost, "/logout", nil, ck)
	require.Equal(t, http.StatusOK, w.Code)

	// the old cookie no longer authenticates
	w, _ = app.do(t, http.MethodGet, "/notifications", nil, ck)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	_, _ = app.signup(t, "forgetful@example.com")

	// unknown address
	w, _ := app.do(t, http.MethodPost, "/forgot", gin.H{"username": "nobody@example.com"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = app.do(t, http.MethodPost, "/forgot", gin.H{"username": "forgetful@example.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	msgs := app.mail.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "forgetful@example.com", msgs[0].To)

	token := regexp.MustCompile(`/reset/([\w\-.]+)`).FindStringSubmatch(msgs[0].Body)
	require.Len(t, token, 2)

	// mismatched confirmation
	w, _ = app.do(t, http.MethodPost, "/reset/"+token[1], gin.H{
		"password": "newpassword",
		"confirm":  "different",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(t, http.MethodPost, "/reset/"+token[1], gin.H{
		"password": "newpassword",
		"confirm":  "newpassword",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// a second use of the token fails
	w, _ = app.do(t, http.MethodPost, "/reset/"+token[1], gin.H{
		"password": "anotherone",
		"confirm":  "anotherone",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// the old password is gone, the new one works
	w, _ = app.do(t, http.MethodPost, "/login", gin.H{
		"username": "forgetful@example.com",
		"password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(t, http.MethodPost, "/login", gin.H{
		"username": "forgetful@example.com",
		"password": "newpassword",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBogusResetToken(t *testing.T) {
	app := newTestApp(t)

	w, out := app.do(t, http.MethodPost, "/reset/not-a-real-token", gin.H{
		"password": "newpassword",
		"confirm":  "newpassword",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "/forgot", out["redirect"])
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/versecraft/versecraft/internal/config"
	"github.com/versecraft/versecraft/internal/content"
	"github.com/versecraft/versecraft/internal/notifications"
	"github.com/versecraft/versecraft/internal/reviews"
	"github.com/versecraft/versecraft/internal/sessions"
	"github.com/versecraft/versecraft/internal/users"
	"github.com/versecraft/versecraft/pkg/mailer"
	"github.com/versecraft/versecraft/pkg/middleware"
	"github.com/versecraft/versecraft/pkg/validation"
)

const testAdminCode = "admin-code"

// testApp wires the full handler stack against in-memory repositories
// and a miniredis-backed session store.
type testApp struct {
	router    *gin.Engine
	cfg       *config.Config
	mail      *mailer.Mock
	userRepo  *users.MemoryRepository
	notifRepo *notifications.MemoryRepository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	cfg := &config.Config{
		Session: config.SessionConfig{CookieName: "vc_session", TTL: time.Hour},
		JWT:     config.JWTConfig{Secret: "test-secret", ResetTTL: time.Hour},
		Admin:   config.AdminConfig{SignupCode: testAdminCode},
	}

	mail := mailer.NewMock()
	userRepo := users.NewMemoryRepository()
	usersSvc := users.NewService(userRepo, users.Options{
		AdminSignupCode: cfg.Admin.SignupCode,
		TokenSecret:     cfg.JWT.Secret,
		ResetTTL:        cfg.JWT.ResetTTL,
		Mailer:          mail,
	})

	contentRepo := content.NewMemoryRepository()
	reviewRepo := reviews.NewMemoryRepository()
	notifRepo := notifications.NewMemoryRepository()

	reviewsSvc := reviews.NewService(reviewRepo, contentRepo)
	contentSvc := content.NewService(contentRepo, reviewsSvc)
	notifsSvc := notifications.NewService(notifRepo, userRepo)
	sessSvc := sessions.NewService(sessions.NewRedisRepository(client, "test:session:"))

	r := gin.New()
	resolver := &SessionUserResolver{Sessions: sessSvc, Users: usersSvc}
	r.Use(middleware.CurrentUserMiddleware(resolver, cfg.Session.CookieName))
	r.Use(UnreadBadgeMiddleware(notifsSvc))

	NewAuthHandler(cfg, usersSvc, sessSvc, nil).Register(r)
	NewContentHandler(contentSvc, reviewsSvc, notifsSvc, nil).Register(r, NewReviewHandler(reviewsSvc, contentSvc))
	NewUsersHandler(usersSvc, contentSvc, notifsSvc, nil).Register(r)

	return &testApp{
		router:    r,
		cfg:       cfg,
		mail:      mail,
		userRepo:  userRepo,
		notifRepo: notifRepo,
	}
}

// do performs a JSON request, optionally authenticated by the session
// cookie, and decodes the response body.
func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// signup registers an account and returns its session cookie and id.
func (a *testApp) signup(t *testing.T, email string) (*http.Cookie, string) {
	t.Helper()
	w, out := a.do(t, http.MethodPost, "/register", gin.H{
		"username":  email,
		"password":  "hunter22",
		"firstName": "Test",
		"lastName":  "Author",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	user, ok := out["user"].(map[string]any)
	require.True(t, ok)
	id, _ := user["id"].(string)
	require.NotEmpty(t, id)

	return sessionCookie(t, a.cfg, w), id
}

func sessionCookie(t *testing.T, cfg *config.Config, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cfg.Session.CookieName && ck.Value != "" {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", cfg.Session.CookieName)
	return nil
}

// publish creates a content item of the given kind and returns its id.
func (a *testApp) publish(t *testing.T, cookie *http.Cookie, base, name string) string {
	t.Helper()
	w, out := a.do(t, http.MethodPost, base, gin.H{
		"name": name,
		"body": "content of " + name,
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	item, ok := out["item"].(map[string]any)
	require.True(t, ok)
	id, _ := item["id"].(string)
	require.NotEmpty(t, id)
	return id
}

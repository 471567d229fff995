package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/geocoder89/monocontact/internal/config"
	"github.com/geocoder89/monocontact/internal/db"
	apphttp "github.com/geocoder89/monocontact/internal/http"
	"github.com/geocoder89/monocontact/internal/notifications"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// These tests exercise the full stack against a real database. They run
// only when TEST_DB_DSN points at a disposable postgres instance.

func testConfig(t *testing.T, dsn string) config.Config {
	t.Helper()

	return config.Config{
		Env:             "test",
		Port:            0,
		DBURL:           dsn,
		PublicBaseURL:   "http://localhost:3000",
		AvatarDir:       t.TempDir(),
		JWTSecret:       "test-secret-key",
		SessionTTLHours: 1,
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping database integration tests")
	}

	if err := db.Migrate(dsn, filepath.Join("..", "..", "..", "migrations")); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), dsn)

	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := apphttp.NewRouter(logger, pool, nil, notifications.NewLogNotifier(), testConfig(t, dsn))

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE contacts, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func verificationTokenFor(t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()

	var token string
	err := pool.QueryRow(context.Background(),
		`SELECT verification_token FROM users WHERE email = $1`, email).Scan(&token)
	if err != nil {
		t.Fatalf("failed to read verification token: %v", err)
	}

	return token
}

func signUpAndSignIn(t *testing.T, router http.Handler, pool *pgxpool.Pool, email string) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/api/users/signup",
		`{"email":"`+email+`","password":"secret-pass"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: got %d, body=%s", w.Code, w.Body.String())
	}

	token := verificationTokenFor(t, pool, email)

	w = doRequest(router, http.MethodGet, "/api/users/verify/"+token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/api/users/signin",
		`{"email":"`+email+`","password":"secret-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signin: got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	mustReadJSON(t, w, &resp)

	if resp.Data.Token == "" {
		t.Fatalf("signin returned no token: %s", w.Body.String())
	}

	return resp.Data.Token
}

func TestSignupVerifySigninFlow(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	// sign-in before verification must be rejected
	w := doRequest(router, http.MethodPost, "/api/users/signup",
		`{"email":"flow@x.com","password":"secret-pass"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/api/users/signin",
		`{"email":"flow@x.com","password":"secret-pass"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unverified signin: got %d, want 403", w.Code)
	}

	token := verificationTokenFor(t, pool, "flow@x.com")

	w = doRequest(router, http.MethodGet, "/api/users/verify/"+token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: got %d, body=%s", w.Code, w.Body.String())
	}

	// the token is single-use: consuming it clears it from the record
	w = doRequest(router, http.MethodGet, "/api/users/verify/"+token, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second verify: got %d, want 404", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/users/signin",
		`{"email":"flow@x.com","password":"secret-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verified signin: got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestContactLifecycle(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	token := signUpAndSignIn(t, router, pool, "owner@x.com")
	auth := map[string]string{"Authorization": "Bearer " + token}

	// empty collection
	w := doRequest(router, http.MethodGet, "/api/contacts", "", auth)
	if w.Code != http.StatusNoContent {
		t.Fatalf("empty list: got %d, want 204", w.Code)
	}

	// create
	w = doRequest(router, http.MethodPost, "/api/contacts",
		`{"name":"Ada","email":"ada@x.com","phone":"123"}`, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			NewContact struct {
				ID string `json:"id"`
			} `json:"newContact"`
		} `json:"data"`
	}
	mustReadJSON(t, w, &created)
	contactID := created.Data.NewContact.ID

	// favorite, then list filtered by favorite
	w = doRequest(router, http.MethodPatch, "/api/contacts/"+contactID+"/favorite",
		`{"favorite":true}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("favorite: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/contacts?favorite=true", "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("favorite list: got %d, body=%s", w.Code, w.Body.String())
	}

	// update
	w = doRequest(router, http.MethodPut, "/api/contacts/"+contactID,
		`{"name":"Ada Lovelace"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, body=%s", w.Code, w.Body.String())
	}

	// delete, then the contact is gone
	w = doRequest(router, http.MethodDelete, "/api/contacts/"+contactID, "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/contacts/"+contactID, "", auth)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted contact: got %d, want 404", w.Code)
	}
}

func TestContactsAreIsolatedPerUser(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	ownerToken := signUpAndSignIn(t, router, pool, "alice@x.com")
	otherToken := signUpAndSignIn(t, router, pool, "bob@x.com")

	w := doRequest(router, http.MethodPost, "/api/contacts",
		`{"name":"Ada","email":"ada@x.com","phone":"123"}`,
		map[string]string{"Authorization": "Bearer " + ownerToken})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			NewContact struct {
				ID string `json:"id"`
			} `json:"newContact"`
		} `json:"data"`
	}
	mustReadJSON(t, w, &created)

	// another user addressing the contact directly gets 403, not 404
	w = doRequest(router, http.MethodGet, "/api/contacts/"+created.Data.NewContact.ID, "",
		map[string]string{"Authorization": "Bearer " + otherToken})
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign contact: got %d, want 403", w.Code)
	}

	// and never sees it in a listing
	w = doRequest(router, http.MethodGet, "/api/contacts", "",
		map[string]string{"Authorization": "Bearer " + otherToken})
	if w.Code != http.StatusNoContent {
		t.Fatalf("foreign listing: got %d, want 204", w.Code)
	}
}

func TestSignOutInvalidatesTheSession(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	token := signUpAndSignIn(t, router, pool, "bye@x.com")
	auth := map[string]string{"Authorization": "Bearer " + token}

	w := doRequest(router, http.MethodGet, "/api/users/current", "", auth)
	if w.Code != http.StatusOK {
		t.Fatalf("current: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodPost, "/api/users/signout", "", auth)
	if w.Code != http.StatusNoContent {
		t.Fatalf("signout: got %d, body=%s", w.Code, w.Body.String())
	}

	// the JWT itself is still unexpired, but the stored session is gone
	w = doRequest(router, http.MethodGet, "/api/users/current", "", auth)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("current after signout: got %d, want 401", w.Code)
	}
}

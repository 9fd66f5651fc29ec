package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

func testConfig(service string) *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "helpdesk-test", Version: "test", Service: service},
		Auth:    config.AuthConfig{BcryptCost: 4},
		Tickets: config.TicketConfig{StatusSet: "standard"},
	}
}

func newTestApp(t *testing.T, service string) *fiber.App {
	t.Helper()
	app, err := New(Options{
		Config: testConfig(service),
		Repos:  MemoryRepositories(memory.NewStore()),
		Hasher: auth.NewBcryptHasher(4),
	})
	require.NoError(t, err)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func registerAndLogin(t *testing.T, app *fiber.App, name, email, role string) (string, string) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/register", "", map[string]any{
		"name": name, "email": email, "password": "pw", "role": role,
	})
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]any)

	status, body = call(t, app, http.MethodPost, "/login", "", map[string]any{"email": email, "password": "pw"})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string), user["id"].(string)
}

func TestRegisterLoginListScenario(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)

	status, body := call(t, app, http.MethodPost, "/register", "", map[string]any{
		"name": "Ana", "email": "a@x.com", "password": "pw", "role": "gestor",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "gestor", user["role"])
	assert.NotContains(t, user, "password_hash")

	status, body = call(t, app, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)
	assert.Len(t, token, 64)

	status, body = call(t, app, http.MethodGet, "/tickets", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{}, body["tickets"])
}

func TestRegisterRejections(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	registerAndLogin(t, app, "Ana", "a@x.com", "gestor")

	status, body := call(t, app, http.MethodPost, "/register", "", map[string]any{
		"name": "Ana", "email": "a@x.com", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = call(t, app, http.MethodPost, "/register", "", map[string]any{
		"name": "Bo", "email": "b@x.com", "password": "pw", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
}

func TestLoginFailure(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	registerAndLogin(t, app, "Ana", "a@x.com", "gestor")

	status, body := call(t, app, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	assert.Equal(t, "invalid credentials or inactive user", body["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/tickets"},
		{http.MethodPost, "/tickets"},
		{http.MethodGet, "/tickets/some-id"},
		{http.MethodPut, "/tickets/some-id/status"},
		{http.MethodGet, "/validate"},
		{http.MethodPost, "/logout"},
		{http.MethodGet, "/users"},
	} {
		status, body := call(t, app, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, route.path)
		assert.Equal(t, "MISSING_TOKEN", body["code"], route.path)

		status, body = call(t, app, route.method, route.path, "deadbeef", nil)
		assert.Equal(t, http.StatusUnauthorized, status, route.path)
		assert.Equal(t, "INVALID_TOKEN", body["code"], route.path)
	}
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	first, _ := registerAndLogin(t, app, "Ana", "a@x.com", "gestor")

	status, body := call(t, app, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	second := body["token"].(string)

	status, _ = call(t, app, http.MethodGet, "/tickets", first, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, app, http.MethodGet, "/tickets", second, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogoutAndValidate(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	token, id := registerAndLogin(t, app, "Ana", "a@x.com", "gestor")

	status, body := call(t, app, http.MethodGet, "/validate", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["user"].(map[string]any)["id"])

	status, body = call(t, app, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = call(t, app, http.MethodGet, "/validate", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTicketStatusScenario(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	gestor, gestorID := registerAndLogin(t, app, "Ana", "a@x.com", "gestor")
	admin, adminID := registerAndLogin(t, app, "Root", "root@x.com", "admin")

	status, body := call(t, app, http.MethodPost, "/tickets", gestor, map[string]any{
		"title": "Printer down", "description": "Third floor printer is jammed",
	})
	require.Equal(t, http.StatusCreated, status, body)
	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, "open", ticket["status"])
	assert.Nil(t, ticket["assigned_admin_id"])
	assert.Equal(t, gestorID, ticket["creator_id"])
	id := ticket["id"].(string)

	status, body = call(t, app, http.MethodPut, "/tickets/"+id+"/status", admin, map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "in_progress", body["ticket"].(map[string]any)["status"])

	status, body = call(t, app, http.MethodPut, "/tickets/"+id+"/status", gestor, map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = call(t, app, http.MethodPut, "/tickets/"+id+"/status", admin, map[string]any{"estado": "cerrado"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "closed", body["ticket"].(map[string]any)["status"])

	status, body = call(t, app, http.MethodPut, "/tickets/"+id+"/assign", admin, map[string]any{"admin_id": gestorID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	status, body = call(t, app, http.MethodPut, "/tickets/"+id+"/assign", admin, map[string]any{"assigned_admin_id": adminID})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, adminID, body["ticket"].(map[string]any)["assigned_admin_id"])

	status, body = call(t, app, http.MethodPost, "/tickets/"+id+"/comments", gestor, map[string]any{"mensaje": "thanks"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "thanks", body["comment"].(map[string]any)["message"])

	status, body = call(t, app, http.MethodGet, "/tickets/"+id, gestor, nil)
	require.Equal(t, http.StatusOK, status)
	detail := body["ticket"].(map[string]any)
	activity := detail["activity"].([]any)
	require.Len(t, activity, 1)
	author := activity[0].(map[string]any)["author"].(map[string]any)
	assert.Equal(t, "Ana", author["name"])
	assert.Len(t, detail["history"].([]any), 3)
	assert.Equal(t, gestorID, detail["creator_id"])
}

func TestGestorCannotSeeOthersTickets(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	ana, _ := registerAndLogin(t, app, "Ana", "a@x.com", "gestor")
	bo, boID := registerAndLogin(t, app, "Bo", "b@x.com", "gestor")

	status, body := call(t, app, http.MethodPost, "/tickets", bo, map[string]any{"titulo": "t", "descripcion": "d"})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["ticket"].(map[string]any)["id"].(string)

	status, body = call(t, app, http.MethodGet, "/tickets?gestor_id="+boID, ana, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["tickets"])

	status, _ = call(t, app, http.MethodGet, "/tickets/"+id, ana, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodPost, "/tickets/"+id+"/comments", ana, map[string]any{"comment": "hi"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodGet, "/tickets/does-not-exist", ana, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestAdminUserManagement(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)
	gestor, gestorID := registerAndLogin(t, app, "Ana", "a@x.com", "gestor")
	admin, _ := registerAndLogin(t, app, "Root", "root@x.com", "admin")

	status, _ := call(t, app, http.MethodGet, "/users", gestor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 2)

	status, body = call(t, app, http.MethodPut, "/users/"+gestorID, admin, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["user"].(map[string]any)["is_active"])

	status, _ = call(t, app, http.MethodGet, "/tickets", gestor, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, http.MethodDelete, "/users/"+gestorID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, app, http.MethodDelete, "/users/"+gestorID, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServiceSplit(t *testing.T) {
	identity := newTestApp(t, config.ServiceIdentity)
	status, _ := call(t, identity, http.MethodGet, "/tickets", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	tickets := newTestApp(t, config.ServiceTickets)
	status, _ = call(t, tickets, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "password": "pw"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHealthAndCORS(t *testing.T) {
	app := newTestApp(t, config.ServiceAll)

	status, body := call(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])

	status, body = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "metrics")

	req := httptest.NewRequest(http.MethodOptions, "/tickets", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "https://console.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/Ventas-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/Ventas-api/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "ventas-api-test"
	testExpMin    = 60
)

// buildTestApp app mínima con AuthMiddleware + RequireRole y un handler dummy.
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"ok": true, "role": apphttp.GetRole(c)})
		},
	)
	return app
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireRole_AdminAccede(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), tokenForRole(t, pkgjwt.RoleAdmin))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "admin", body["role"])
}

func TestRequireRole_CronAccedeRutaMultiRol(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin, pkgjwt.RoleCron), tokenForRole(t, pkgjwt.RoleCron))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireRole_CronBloqueadoEnRutaAdmin(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), tokenForRole(t, pkgjwt.RoleCron))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN")
}

func TestRequireRole_TokenSinRol_Retorna401(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), tokenForRole(t, ""))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE")
}

func TestAuthMiddleware_SinHeader(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenInvalido(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), "Bearer token.invalido.aqui")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_FormatoIncorrecto(t *testing.T) {
	resp := doRequest(t, buildTestApp(pkgjwt.RoleAdmin), "Basic abc")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

package serverutils

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func newProtectedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JwtMiddleware(secret))
	app.Get("/whoami", func(ctx *fiber.Ctx) error {
		userId, _ := ctx.Locals("user_id").(string)
		return ctx.SendString(userId)
	})
	return app
}

func signedToken(t *testing.T, secret string, userId string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userId})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJwtMiddlewareAcceptsConfiguredSecret(t *testing.T) {
	app := newProtectedApp(testSecret)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, testSecret, "user-1"))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "user-1", string(body))
}

func TestJwtMiddlewareRejectsWrongSecret(t *testing.T) {
	app := newProtectedApp(testSecret)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "some-other-secret", "user-1"))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestJwtMiddlewareRejectsMissingToken(t *testing.T) {
	app := newProtectedApp(testSecret)

	res, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestJwtMiddlewareRejectsUnsignedToken(t *testing.T) {
	app := newProtectedApp(testSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user-1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

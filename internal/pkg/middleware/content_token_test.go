package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/internal/pkg/security"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

const testContentTokenSecret = "content-token-test-secret"

func newContentTokenApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("CONTENT_TOKEN_SECRET", testContentTokenSecret)

	app := fiber.New()
	app.Get("/question-sets/:id/content", ContentTokenAuthMiddleware(), func(c *fiber.Ctx) error {
		claims, ok := c.Locals(usercontext.KeyContentTokenClaims).(*security.AccessTokenClaims)
		require.True(t, ok)
		return c.JSON(fiber.Map{"user_id": claims.UserID})
	})
	return app
}

func TestContentTokenAuthAcceptsValidToken(t *testing.T) {
	app := newContentTokenApp(t)

	token, err := security.GenerateAccessToken(42, 7, "purchase", 15*time.Minute, testContentTokenSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/question-sets/7/content", nil)
	req.Header.Set("X-Access-Token", token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Query parameter form works too, for clients that cannot set headers.
	req = httptest.NewRequest(http.MethodGet, "/question-sets/7/content?token="+token, nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestContentTokenAuthRejectsMissingToken(t *testing.T) {
	app := newContentTokenApp(t)

	req := httptest.NewRequest(http.MethodGet, "/question-sets/7/content", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestContentTokenAuthRejectsTamperedToken(t *testing.T) {
	app := newContentTokenApp(t)

	token, err := security.GenerateAccessToken(42, 7, "purchase", 15*time.Minute, "some-other-secret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/question-sets/7/content", nil)
	req.Header.Set("X-Access-Token", token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestContentTokenAuthRejectsExpiredToken(t *testing.T) {
	app := newContentTokenApp(t)

	token, err := security.GenerateAccessToken(42, 7, "purchase", -time.Minute, testContentTokenSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/question-sets/7/content", nil)
	req.Header.Set("X-Access-Token", token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestContentTokenAuthRejectsWrongQuestionSet(t *testing.T) {
	app := newContentTokenApp(t)

	token, err := security.GenerateAccessToken(42, 7, "purchase", 15*time.Minute, testContentTokenSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/question-sets/8/content", nil)
	req.Header.Set("X-Access-Token", token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

package handlers

import (
	"net/http"
	"strings"
	"testing"

	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestLoginHandler(t *testing.T) {
	db := setupTestDB(t)

	hashed, err := services.HashPassword("correct-horse")
	assert.NoError(t, err)
	db.Create(&models.User{ID: "u-1", Name: "Ana", Email: "ana@example.com",
		Password: hashed, Role: models.RoleClient, IsActive: true})

	t.Run("Valid Credentials", func(t *testing.T) {
		body := strings.NewReader(`{"email":"ana@example.com","password":"correct-horse"}`)
		_, c, rec := setupEcho(http.MethodPost, "/api/login", body)

		err := LoginHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "token")

		// Session cookie issued
		cookies := rec.Result().Cookies()
		found := false
		for _, cookie := range cookies {
			if cookie.Name == "case_flow_session" && cookie.Value != "" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		body := strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/login", body)

		err := LoginHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if assert.True(t, ok) {
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		}
	})

	t.Run("Unknown Email", func(t *testing.T) {
		body := strings.NewReader(`{"email":"nobody@example.com","password":"x"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/login", body)

		err := LoginHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if assert.True(t, ok) {
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		}
	})

	t.Run("Deactivated Account", func(t *testing.T) {
		// Select forces the zero-valued IsActive through the column default.
		db.Select("ID", "Name", "Email", "Password", "Role", "IsActive").
			Create(&models.User{ID: "u-2", Name: "Ben", Email: "ben@example.com",
				Password: hashed, Role: models.RoleClient, IsActive: false})

		var seeded models.User
		db.First(&seeded, "id = ?", "u-2")
		assert.False(t, seeded.IsActive)

		body := strings.NewReader(`{"email":"ben@example.com","password":"correct-horse"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/login", body)

		err := LoginHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if assert.True(t, ok) {
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		}
	})
}

func TestGetCurrentUserHandler(t *testing.T) {
	setupTestDB(t)

	t.Run("Authenticated", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/me", nil)
		asUser(c, &models.User{ID: "u-1", Name: "Ana", Role: models.RoleClient})

		err := GetCurrentUserHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Ana")
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/api/me", nil)

		err := GetCurrentUserHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		if assert.True(t, ok) {
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		}
	})
}

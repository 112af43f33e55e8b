package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"case_flow_app_go/config"
	"case_flow_app_go/db"
	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	err = testDB.Exec("PRAGMA journal_mode=WAL;").Error
	assert.NoError(t, err)

	// Initialize Storage for tests if not already set
	if services.Storage == nil {
		services.Storage = services.NewLocalStorage("tmp/test_uploads")
	}

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Case{},
		&models.Assignment{},
		&models.AssignmentStatusChange{},
		&models.Hearing{},
		&models.CaseDocument{},
		&models.Notification{},
	)
	assert.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment:   "test",
		EmailTestMode: true,
	})

	return e, c, rec
}

func asUser(c echo.Context, user *models.User) {
	c.Set("user", user)
}

func testClient(db *gorm.DB, id string) *models.User {
	user := &models.User{ID: id, Name: "Client " + id, Email: id + "@example.com",
		Password: "x", Role: models.RoleClient, IsActive: true}
	db.Create(user)
	return user
}

func testLawyer(db *gorm.DB, id string) *models.User {
	spec := "Family Law"
	rating := 4.5
	user := &models.User{ID: id, Name: "Lawyer " + id, Email: id + "@example.com",
		Password: "x", Role: models.RoleLawyer, IsActive: true,
		Specialization: &spec, Rating: &rating, IsAvailable: true}
	db.Create(user)
	return user
}

func testCase(db *gorm.DB, id, clientID string, status models.CaseStatus) *models.Case {
	c := &models.Case{ID: id, ClientID: clientID, CaseNumber: "N-" + id, CaseType: "family",
		District: "central", Description: "d", PlaintiffName: "p", DefendantName: "d", Status: status}
	db.Create(c)
	return c
}

func stringToPtr(s string) *string {
	return &s
}

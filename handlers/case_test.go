package handlers

import (
	"net/http"
	"strings"
	"testing"

	"case_flow_app_go/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestCreateCaseHandler(t *testing.T) {
	db := setupTestDB(t)
	client := testClient(db, "client-1")

	t.Run("Creates A Pending Case", func(t *testing.T) {
		body := strings.NewReader(`{
			"case_type": "family",
			"district": "central",
			"description": "custody dispute",
			"plaintiff_name": "Ana",
			"defendant_name": "Ben"
		}`)
		_, c, rec := setupEcho(http.MethodPost, "/api/cases", body)
		asUser(c, client)

		err := CreateCaseHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"pending"`)

		var count int64
		db.Model(&models.Case{}).Where("client_id = ?", client.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Missing Fields Rejected", func(t *testing.T) {
		body := strings.NewReader(`{"case_type": "family"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/cases", body)
		asUser(c, client)

		err := CreateCaseHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestGetCasesHandlerRoleScoping(t *testing.T) {
	db := setupTestDB(t)
	client := testClient(db, "client-1")
	other := testClient(db, "client-2")
	lawyer := testLawyer(db, "lawyer-1")

	mine := testCase(db, "c-mine", client.ID, models.CaseStatusPending)
	theirs := testCase(db, "c-theirs", other.ID, models.CaseStatusLawyerAssigned)
	db.Model(theirs).Update("current_lawyer_id", lawyer.ID)

	t.Run("Client Sees Only Their Cases", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/cases", nil)
		asUser(c, client)

		err := GetCasesHandler(c)
		assert.NoError(t, err)
		assert.Contains(t, rec.Body.String(), mine.ID)
		assert.NotContains(t, rec.Body.String(), theirs.ID)
	})

	t.Run("Lawyer Sees Bound Cases", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/cases", nil)
		asUser(c, lawyer)

		err := GetCasesHandler(c)
		assert.NoError(t, err)
		assert.Contains(t, rec.Body.String(), theirs.ID)
		assert.NotContains(t, rec.Body.String(), mine.ID)
	})

	t.Run("Admin Sees Everything", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/cases", nil)
		asUser(c, &models.User{ID: "admin-1", Role: models.RoleAdmin})

		err := GetCasesHandler(c)
		assert.NoError(t, err)
		assert.Contains(t, rec.Body.String(), mine.ID)
		assert.Contains(t, rec.Body.String(), theirs.ID)
	})

	t.Run("Other Client Cannot View The Detail", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/api/cases/"+mine.ID, nil)
		c.SetParamNames("id")
		c.SetParamValues(mine.ID)
		asUser(c, other)

		err := GetCaseHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})
}

func TestVerifyCaseHandler(t *testing.T) {
	db := setupTestDB(t)
	client := testClient(db, "client-1")
	admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}

	t.Run("Verifies A Pending Case", func(t *testing.T) {
		pending := testCase(db, "c-v1", client.ID, models.CaseStatusPending)

		_, c, rec := setupEcho(http.MethodPost, "/api/cases/"+pending.ID+"/verify", nil)
		c.SetParamNames("id")
		c.SetParamValues(pending.ID)
		asUser(c, admin)

		err := VerifyCaseHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"verified"`)
	})

	t.Run("Invalid Transition Maps To 400", func(t *testing.T) {
		filed := testCase(db, "c-v2", client.ID, models.CaseStatusFiled)

		_, c, _ := setupEcho(http.MethodPost, "/api/cases/"+filed.ID+"/verify", nil)
		c.SetParamNames("id")
		c.SetParamValues(filed.ID)
		asUser(c, admin)

		err := VerifyCaseHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("Unknown Case Maps To 404", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodPost, "/api/cases/nope/verify", nil)
		c.SetParamNames("id")
		c.SetParamValues("nope")
		asUser(c, admin)

		err := VerifyCaseHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestRequestAssignmentHandler(t *testing.T) {
	db := setupTestDB(t)
	client := testClient(db, "client-1")
	lawyer := testLawyer(db, "lawyer-1")
	verified := testCase(db, "c-a1", client.ID, models.CaseStatusVerified)

	t.Run("Creates A Pending Request", func(t *testing.T) {
		body := strings.NewReader(`{"lawyer_id":"lawyer-1"}`)
		_, c, rec := setupEcho(http.MethodPost, "/api/cases/"+verified.ID+"/assignments", body)
		c.SetParamNames("id")
		c.SetParamValues(verified.ID)
		asUser(c, client)

		err := RequestAssignmentHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"lawyer_requested"`)

		var a models.Assignment
		assert.NoError(t, db.First(&a, "case_id = ?", verified.ID).Error)
		assert.Equal(t, lawyer.ID, a.LawyerID)
	})

	t.Run("Conflicting Request Maps To 409", func(t *testing.T) {
		body := strings.NewReader(`{"lawyer_id":"lawyer-1"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/cases/"+verified.ID+"/assignments", body)
		c.SetParamNames("id")
		c.SetParamValues(verified.ID)
		asUser(c, client)

		err := RequestAssignmentHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusConflict, httpErr.Code)
	})

	t.Run("Unknown Lawyer Maps To 404", func(t *testing.T) {
		other := testCase(db, "c-a2", client.ID, models.CaseStatusVerified)
		body := strings.NewReader(`{"lawyer_id":"nobody"}`)
		_, c, _ := setupEcho(http.MethodPost, "/api/cases/"+other.ID+"/assignments", body)
		c.SetParamNames("id")
		c.SetParamValues(other.ID)
		asUser(c, client)

		err := RequestAssignmentHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestAcceptAssignmentHandler(t *testing.T) {
	db := setupTestDB(t)
	client := testClient(db, "client-1")
	lawyer := testLawyer(db, "lawyer-1")
	verified := testCase(db, "c-acc", client.ID, models.CaseStatusVerified)

	body := strings.NewReader(`{"lawyer_id":"lawyer-1"}`)
	_, c, _ := setupEcho(http.MethodPost, "/api/cases/"+verified.ID+"/assignments", body)
	c.SetParamNames("id")
	c.SetParamValues(verified.ID)
	asUser(c, client)
	assert.NoError(t, RequestAssignmentHandler(c))

	var a models.Assignment
	assert.NoError(t, db.First(&a, "case_id = ?", verified.ID).Error)

	t.Run("Wrong Lawyer Maps To 403", func(t *testing.T) {
		intruder := testLawyer(db, "lawyer-2")
		_, c, _ := setupEcho(http.MethodPost, "/api/assignments/"+a.ID+"/accept", strings.NewReader(`{}`))
		c.SetParamNames("id")
		c.SetParamValues(a.ID)
		asUser(c, intruder)

		err := AcceptAssignmentHandler(c)
		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})

	t.Run("Addressee Accepts", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodPost, "/api/assignments/"+a.ID+"/accept", strings.NewReader(`{}`))
		c.SetParamNames("id")
		c.SetParamValues(a.ID)
		asUser(c, lawyer)

		err := AcceptAssignmentHandler(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"lawyer_assigned"`)
	})
}

package handlers

import (
	"io"
	"net/http"

	"case_flow_app_go/db"
	"case_flow_app_go/middleware"
	"case_flow_app_go/models"
	"case_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

const maxDocumentSize = 25 << 20 // 25 MB

// UploadCaseDocumentHandler attaches a supporting document to a case
func UploadCaseDocumentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var caseRecord models.Case
	if err := db.DB.First(&caseRecord, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Case not found")
	}
	if !canViewCase(user, &caseRecord) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	if file.Size > maxDocumentSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File exceeds the 25 MB limit")
	}

	key := services.GenerateCaseDocumentKey(caseRecord.ID, file.Filename)
	result, err := services.Storage.Upload(c.Request().Context(), file, key)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store file")
	}

	description := services.SanitizeTextPtr(formValuePtr(c, "description"))
	document := models.CaseDocument{
		CaseID:           caseRecord.ID,
		FileName:         result.FileName,
		FileOriginalName: file.Filename,
		StorageKey:       result.Key,
		FileSize:         result.FileSize,
		MimeType:         result.MimeType,
		Description:      description,
		UploadedByID:     &user.ID,
	}
	if err := db.DB.Create(&document).Error; err != nil {
		// Best effort cleanup of the stored blob; the row is the source of truth.
		_ = services.Storage.Delete(c.Request().Context(), result.Key)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save document record")
	}
	return c.JSON(http.StatusCreated, document)
}

// DownloadCaseDocumentHandler streams a document back to an authorized viewer
func DownloadCaseDocumentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var document models.CaseDocument
	err := db.DB.Preload("Case").
		First(&document, "id = ? AND case_id = ?", c.Param("documentId"), c.Param("id")).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}
	if document.Case == nil || !canViewCase(user, document.Case) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	reader, contentType, err := services.Storage.Get(c.Request().Context(), document.StorageKey)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+document.FileOriginalName+`"`)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), reader)
	return err
}

// DeleteCaseDocumentHandler removes a document, uploader or admin only
func DeleteCaseDocumentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var document models.CaseDocument
	err := db.DB.First(&document, "id = ? AND case_id = ?", c.Param("documentId"), c.Param("id")).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}
	isUploader := document.UploadedByID != nil && *document.UploadedByID == user.ID
	if !isUploader && user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	if err := services.Storage.Delete(c.Request().Context(), document.StorageKey); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete file")
	}
	if err := db.DB.Delete(&document).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete document record")
	}
	return c.NoContent(http.StatusNoContent)
}

func formValuePtr(c echo.Context, field string) *string {
	value := c.FormValue(field)
	if value == "" {
		return nil
	}
	return &value
}

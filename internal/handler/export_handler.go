package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/service"
	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
	"github.com/noah-isme/enrollment-console/pkg/response"
)

// maxImportSize bounds student workbook uploads.
const maxImportSize = 8 << 20

// ExportHandler serves collection downloads and the student workbook import.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a collection
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param resource path string true "students, courses or enrollments"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/{resource} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.Export(c.Param("resource"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Archive godoc
// @Summary Store an export behind an expiring download link
// @Tags Export
// @Produce json
// @Param resource path string true "students, courses or enrollments"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/{resource}/archive [post]
func (h *ExportHandler) Archive(c *gin.Context) {
	archived, err := h.exports.Archive(c.Param("resource"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"filename":   archived.Filename,
		"expires_at": archived.ExpiresAt,
		"url":        strings.TrimSuffix(c.FullPath(), "/export/:resource/archive") + "/exports/" + archived.Token,
	})
}

// Fetch godoc
// @Summary Download an archived export
// @Tags Export
// @Param token path string true "Download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Fetch(c *gin.Context) {
	path, err := h.exports.OpenArchived(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// ImportStudents godoc
// @Summary Import students from a workbook
// @Description The first sheet must have "name" and "email" header cells. Each row is created through the normal optimistic path.
// @Tags Export
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /import/students [post]
func (h *ExportHandler) ImportStudents(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation(map[string]string{"file": "file is required"}))
		return
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read upload"))
		return
	}
	defer f.Close()

	report, err := h.exports.ImportStudents(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

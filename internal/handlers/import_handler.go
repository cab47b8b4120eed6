package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prephub/quiz-service/internal/services"
	"github.com/prephub/quiz-service/internal/utils"
)

// maxUploadBytes caps uploaded import files at 20 MiB.
const maxUploadBytes = 20 << 20

type ImportHandler struct {
	BaseHandler
	importService services.ImportService
}

func NewImportHandler(importService services.ImportService, logger utils.Logger) *ImportHandler {
	return &ImportHandler{
		BaseHandler:   NewBaseHandler(logger),
		importService: importService,
	}
}

// RunImport sweeps the inbox directory and imports every pending file
func (h *ImportHandler) RunImport(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	run, err := h.importService.ProcessInbox(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// UploadImport accepts a multipart CSV/Excel upload and imports it immediately
func (h *ImportHandler) UploadImport(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Missing file upload (multipart field \"file\")",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "too_large",
			Message: "Import file exceeds the upload size limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Failed to read uploaded file",
			Details: err.Error(),
		})
		return
	}

	result, err := h.importService.ImportUpload(c.Request.Context(), fileHeader.Filename, data, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if result.Failed {
		// The upload was accepted but every row was rejected; the error log
		// travels in the response body.
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

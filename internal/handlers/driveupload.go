package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/handlers/render"
	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/service/gdrive"
)

// Uploads are property photos and signed documents, 32 MiB covers them
const maxUploadMemory = 32 << 20

type driveUploader interface {
	Upload(ctx context.Context, name string, mimeType string, r io.Reader) (gdrive.UploadedFile, error)
}

type DriveUploadHandler struct {
	uploader driveUploader
	logger   logger.Logger
}

func NewDriveUpload(u driveUploader, l logger.Logger) *DriveUploadHandler {
	return &DriveUploadHandler{uploader: u, logger: l}
}

// Upload proxies a multipart file into the brokerage's Drive folder
func (h *DriveUploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	type UploadResponse struct {
		Success     bool   `json:"success"`
		FileID      string `json:"fileId"`
		Name        string `json:"name"`
		WebViewLink string `json:"webViewLink"`
	}

	if !requirePost(w, r) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		render.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close() // nolint:errcheck

	uploaded, err := h.uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case err == nil:
		render.JSON(w, UploadResponse{
			Success:     true,
			FileID:      uploaded.ID,
			Name:        uploaded.Name,
			WebViewLink: uploaded.WebViewLink,
		})
	case errors.Is(err, apperrors.ErrNotConfigured):
		h.logger.Error("Missing Google service account credentials")
		render.Error(w, "Server configuration error: Missing Google Credentials", http.StatusInternalServerError)
	default:
		h.logger.Error("Drive upload failed", "file", header.Filename, "error", err)
		render.ErrorDetails(w, "Upload failed", err.Error(), http.StatusInternalServerError)
	}
}

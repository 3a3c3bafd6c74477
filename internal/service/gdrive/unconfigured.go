package gdrive

import (
	"context"
	"io"

	"github.com/tasaciones/crm-backend/internal/apperrors"
)

// UnconfiguredUploader stands in when service-account credentials are not
// set. Uploads answer with the configuration error instead of the server
// refusing to boot.
type UnconfiguredUploader struct{}

func (UnconfiguredUploader) Upload(ctx context.Context, name string, mimeType string, r io.Reader) (UploadedFile, error) {
	return UploadedFile{}, apperrors.ErrNotConfigured
}

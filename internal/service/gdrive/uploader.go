package gdrive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tasaciones/crm-backend/internal/apperrors"
	"github.com/tasaciones/crm-backend/internal/logger"
)

const driveScope = "https://www.googleapis.com/auth/drive"

type Config struct {
	// Service account identity. The private key usually arrives through an
	// env var with escaped newlines and stray quotes, CleanPrivateKey
	// normalizes it.
	ServiceAccountEmail string
	PrivateKey          string

	// Optional parent folder for uploads
	FolderID string
}

// UploadedFile is the subset of Drive file metadata returned to clients
type UploadedFile struct {
	ID          string
	Name        string
	WebViewLink string
}

// Uploader stores files in Google Drive under a service-account identity.
// Unlike the calendar flow this needs no per-user consent: the brokerage
// owns the target folder.
type Uploader struct {
	cfg    Config
	logger logger.Logger

	// Extra client options, tests use option.WithEndpoint
	opts []option.ClientOption
}

func NewUploader(cfg Config, l logger.Logger, opts ...option.ClientOption) (*Uploader, error) {
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, apperrors.ErrNotConfigured
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	cfg.PrivateKey = CleanPrivateKey(cfg.PrivateKey)

	return &Uploader{cfg: cfg, logger: l, opts: opts}, nil
}

// Upload streams the file into Drive and returns its id and view link.
func (u *Uploader) Upload(ctx context.Context, name string, mimeType string, r io.Reader) (UploadedFile, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return UploadedFile{}, err
	}

	meta := &drive.File{Name: name}
	if u.cfg.FolderID != "" {
		meta.Parents = []string{u.cfg.FolderID}
	}

	call := svc.Files.Create(meta)
	if mimeType != "" {
		call = call.Media(r, googleapi.ContentType(mimeType))
	} else {
		call = call.Media(r)
	}

	created, err := call.
		Fields("id", "name", "webViewLink", "webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return UploadedFile{}, fmt.Errorf("drive upload: %w", err)
	}

	u.logger.Info("File uploaded to drive", "file_id", created.Id, "name", created.Name)

	return UploadedFile{
		ID:          created.Id,
		Name:        created.Name,
		WebViewLink: created.WebViewLink,
	}, nil
}

func (u *Uploader) service(ctx context.Context) (*drive.Service, error) {
	conf := &jwt.Config{
		Email:      u.cfg.ServiceAccountEmail,
		PrivateKey: []byte(u.cfg.PrivateKey),
		Scopes:     []string{driveScope},
		TokenURL:   google.JWTTokenURL,
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(conf.TokenSource(ctx)),
	}, u.opts...)

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("can't build drive client: %w", err)
	}
	return svc, nil
}

// CleanPrivateKey undoes the two common env-var manglings of a PEM key:
// accidental surrounding quotes and literal "\n" escape sequences.
func CleanPrivateKey(raw string) string {
	key := strings.Trim(raw, `'"`)
	key = strings.ReplaceAll(key, `\n`, "\n")
	return strings.TrimSpace(key)
}

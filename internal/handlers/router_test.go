package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/tasaciones/crm-backend/internal/logger"
	"github.com/tasaciones/crm-backend/internal/models"
	"github.com/tasaciones/crm-backend/internal/service/gdrive"
)

// Stubs for the surfaces a test does not care about

type authServiceStub struct {
	exchangeFn func(ctx context.Context, code string, uid string) (models.IssuedAccess, error)
	refreshFn  func(ctx context.Context, uid string) (models.IssuedAccess, error)
	signOutFn  func(ctx context.Context, uid string) error
}

func (s *authServiceStub) ExchangeCode(ctx context.Context, code string, uid string) (models.IssuedAccess, error) {
	return s.exchangeFn(ctx, code, uid)
}

func (s *authServiceStub) Refresh(ctx context.Context, uid string) (models.IssuedAccess, error) {
	return s.refreshFn(ctx, uid)
}

func (s *authServiceStub) SignOut(ctx context.Context, uid string) error {
	return s.signOutFn(ctx, uid)
}

type adapterStub struct {
	listFn   func(ctx context.Context, uid string, calendarID string, from time.Time, to time.Time) ([]*calendar.Event, error)
	insertFn func(ctx context.Context, uid string, calendarID string, event *calendar.Event) (*calendar.Event, error)
	updateFn func(ctx context.Context, uid string, calendarID string, eventID string, event *calendar.Event) (*calendar.Event, error)
	deleteFn func(ctx context.Context, uid string, calendarID string, eventID string) error
}

func (s *adapterStub) ListEvents(ctx context.Context, uid string, calendarID string, from time.Time, to time.Time) ([]*calendar.Event, error) {
	return s.listFn(ctx, uid, calendarID, from, to)
}

func (s *adapterStub) InsertEvent(ctx context.Context, uid string, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	return s.insertFn(ctx, uid, calendarID, event)
}

func (s *adapterStub) UpdateEvent(ctx context.Context, uid string, calendarID string, eventID string, event *calendar.Event) (*calendar.Event, error) {
	return s.updateFn(ctx, uid, calendarID, eventID, event)
}

func (s *adapterStub) DeleteEvent(ctx context.Context, uid string, calendarID string, eventID string) error {
	return s.deleteFn(ctx, uid, calendarID, eventID)
}

type uploaderStub struct {
	fn func(ctx context.Context, name string, mimeType string, r io.Reader) (gdrive.UploadedFile, error)
}

func (s *uploaderStub) Upload(ctx context.Context, name string, mimeType string, r io.Reader) (gdrive.UploadedFile, error) {
	return s.fn(ctx, name, mimeType, r)
}

type propertyServiceStub struct {
	createFn func(ctx context.Context, p models.Property) (models.Property, error)
	getFn    func(ctx context.Context, id uuid.UUID) (models.Property, error)
	updateFn func(ctx context.Context, id uuid.UUID, p models.Property) (models.Property, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	listFn   func(ctx context.Context) ([]models.Property, error)
}

func (s *propertyServiceStub) Create(ctx context.Context, p models.Property) (models.Property, error) {
	return s.createFn(ctx, p)
}

func (s *propertyServiceStub) Get(ctx context.Context, id uuid.UUID) (models.Property, error) {
	return s.getFn(ctx, id)
}

func (s *propertyServiceStub) Update(ctx context.Context, id uuid.UUID, p models.Property) (models.Property, error) {
	return s.updateFn(ctx, id, p)
}

func (s *propertyServiceStub) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *propertyServiceStub) List(ctx context.Context) ([]models.Property, error) {
	return s.listFn(ctx)
}

type serverOpts struct {
	auth        calendarAuthService
	adapter     calendarAdapter
	uploader    driveUploader
	properties  propertyService
	middlewares []func(next http.Handler) http.Handler
}

// newTestServer mounts the full router around the given components,
// replacing the ones a test leaves nil with inert stubs
func newTestServer(t *testing.T, o serverOpts) *httptest.Server {
	t.Helper()

	if o.auth == nil {
		o.auth = &authServiceStub{}
	}
	if o.adapter == nil {
		o.adapter = &adapterStub{}
	}
	if o.uploader == nil {
		o.uploader = &uploaderStub{}
	}
	if o.properties == nil {
		o.properties = &propertyServiceStub{}
	}

	l := logger.NewNoOpLogger()
	mux := NewRouter(
		NewCalendarAuth(o.auth, l),
		NewCalendarEvents(o.adapter, l),
		NewDriveUpload(o.uploader, l),
		NewProperty(o.properties, l),
		o.middlewares...,
	)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// readBody drains and closes the response body
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return string(body)
}
